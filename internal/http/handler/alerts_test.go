package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/http/handler"
	"fleetgap.app/console/internal/model"
)

var _ = Describe("AlertsHandler", func() {
	var (
		repo      *mockRepository
		refresher *mockRefresher
		list      *console.ListController
		h         *handler.AlertsHandler
		router    *gin.Engine
	)

	BeforeEach(func() {
		repo = &mockRepository{}
		refresher = &mockRefresher{}
		list = console.NewListController(repo, console.ListControllerConfig{})
		h = handler.NewAlertsHandler(list, refresher)

		router = gin.New()
		router.GET("/alerts", h.Snapshot)
		router.POST("/alerts/refresh", h.Refresh)
		router.POST("/alerts/page/next", h.NextPage)
		router.POST("/alerts/page/prev", h.PrevPage)
		router.PUT("/alerts/filters", h.SetFilters)
	})

	Describe("Snapshot", func() {
		It("returns the current list state", func() {
			repo.listAlertsFn = func(_ context.Context, page int, _ backend.Filters) (*model.GapAlertPage, error) {
				return &model.GapAlertPage{
					Data:       []model.GapAlert{{ID: 1, Status: model.AlertStatusOpen}},
					TotalCount: 1,
					TotalPages: 1,
					Page:       page,
				}, nil
			}
			list.Refresh(context.Background(), console.TriggerInitial)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var snap console.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Loaded).To(BeTrue())
			Expect(snap.Alerts).To(HaveLen(1))
		})
	})

	Describe("Refresh", func() {
		It("kicks the scheduler and returns 202", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/alerts/refresh", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(refresher.Kicks()).To(Equal([]console.Trigger{console.TriggerManual}))
		})
	})

	Describe("paging", func() {
		It("advances the page and echoes the new state", func() {
			repo.listAlertsFn = func(_ context.Context, page int, _ backend.Filters) (*model.GapAlertPage, error) {
				return &model.GapAlertPage{TotalPages: 3, Page: page}, nil
			}
			list.Refresh(context.Background(), console.TriggerInitial)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/alerts/page/next", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var snap console.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Page).To(Equal(2))
		})

		It("does not go below page 1", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/alerts/page/prev", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var snap console.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Page).To(Equal(1))
		})
	})

	Describe("SetFilters", func() {
		It("applies a valid status filter and resets the page", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/alerts/filters", strings.NewReader(`{"status":"OPEN"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var snap console.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.StatusFilter).To(Equal("OPEN"))
			Expect(snap.Page).To(Equal(1))
		})

		It("clears a filter with an explicit empty string", func() {
			list.SetStatusFilter("OPEN")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/alerts/filters", strings.NewReader(`{"status":""}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var snap console.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.StatusFilter).To(BeEmpty())
		})

		It("rejects an unknown status value", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/alerts/filters", strings.NewReader(`{"status":"BOGUS"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown severity value", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/alerts/filters", strings.NewReader(`{"severity":"LOUD"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/alerts/filters", strings.NewReader(`not json`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
