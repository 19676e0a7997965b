package handler_test

import (
	"context"
	"sync"

	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/model"
)

type mockRepository struct {
	listAlertsFn func(ctx context.Context, page int, filters backend.Filters) (*model.GapAlertPage, error)
	statsFn      func(ctx context.Context) (*model.GapAlertStats, error)
}

func (m *mockRepository) ListAlerts(ctx context.Context, page int, filters backend.Filters) (*model.GapAlertPage, error) {
	if m.listAlertsFn != nil {
		return m.listAlertsFn(ctx, page, filters)
	}
	return &model.GapAlertPage{Page: page}, nil
}

func (m *mockRepository) Stats(ctx context.Context) (*model.GapAlertStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.GapAlertStats{}, nil
}

func (m *mockRepository) MonitoringInterval(context.Context) (int, error) {
	return 60, nil
}

type mockRefresher struct {
	mu    sync.Mutex
	kicks []console.Trigger
}

func (m *mockRefresher) Kick(trigger console.Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kicks = append(m.kicks, trigger)
}

func (m *mockRefresher) Kicks() []console.Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]console.Trigger(nil), m.kicks...)
}

type mockAnalysisClient struct {
	fetchAnalysisFn func(ctx context.Context, reportID int64) (*model.GapAnalysis, error)
	certifyFn       func(ctx context.Context, reportID int64, idempotencyKey string) (*backend.ActionResult, error)
	escalateFn      func(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error)
	breachFn        func(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error)
}

func (m *mockAnalysisClient) FetchAnalysis(ctx context.Context, reportID int64) (*model.GapAnalysis, error) {
	if m.fetchAnalysisFn != nil {
		return m.fetchAnalysisFn(ctx, reportID)
	}
	return &model.GapAnalysis{TotalGaps: 1, Gaps: []model.Gap{{Confidence: 90}}}, nil
}

func (m *mockAnalysisClient) Certify(ctx context.Context, reportID int64, idempotencyKey string) (*backend.ActionResult, error) {
	if m.certifyFn != nil {
		return m.certifyFn(ctx, reportID, idempotencyKey)
	}
	return &backend.ActionResult{Accepted: true}, nil
}

func (m *mockAnalysisClient) Escalate(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error) {
	if m.escalateFn != nil {
		return m.escalateFn(ctx, reportID, notes, idempotencyKey)
	}
	return &backend.ActionResult{Accepted: true}, nil
}

func (m *mockAnalysisClient) Breach(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error) {
	if m.breachFn != nil {
		return m.breachFn(ctx, reportID, notes, idempotencyKey)
	}
	return &backend.ActionResult{Accepted: true}, nil
}
