package console

import (
	"context"
	"log/slog"
	"time"

	"fleetgap.app/console/common/logger"
)

// Scheduler drives background list refreshes. The timer is torn down and
// recreated after every refresh rather than adjusted in place: the cadence
// depends on both the server-configured interval and whether actions are
// awaiting resolution, and rebuilding it keeps exactly one timer alive.
type Scheduler struct {
	list         *ListController
	pending      *PendingSet
	fastInterval time.Duration

	kickCh    chan Trigger
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

type SchedulerConfig struct {
	// FastInterval is the cadence while dispatched actions are still
	// awaiting their resulting status.
	FastInterval time.Duration

	Pending *PendingSet
}

func NewScheduler(list *ListController, cfg SchedulerConfig) *Scheduler {
	fast := cfg.FastInterval
	if fast <= 0 {
		fast = 15 * time.Second
	}
	return &Scheduler{
		list:         list,
		pending:      cfg.Pending,
		fastInterval: fast,
		kickCh:       make(chan Trigger, 1),
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Kick requests an immediate refresh with the given trigger. Non-blocking;
// bursts coalesce into one refresh.
func (s *Scheduler) Kick(trigger Trigger) {
	select {
	case s.kickCh <- trigger:
	default:
	}
}

// Run performs the initial load and then refreshes on a timer until the
// context is cancelled or Stop is called. Meant to run in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "console.scheduler"})
	slog.InfoContext(ctx, "scheduler started", "fast_interval", s.fastInterval)

	s.list.Refresh(ctx, TriggerInitial)

	timer := time.NewTimer(s.cadence(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped", "reason", "context cancelled")
			return
		case <-s.stopCh:
			slog.InfoContext(ctx, "scheduler stopped", "reason", "stop requested")
			return
		case trigger := <-s.kickCh:
			s.list.Refresh(ctx, trigger)
		case <-timer.C:
			s.list.Refresh(ctx, TriggerPoll)
		}

		// Every refresh resets the clock, so a manual refresh pushes the next
		// background poll out by a full interval.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.cadence(ctx))
	}
}

// Stop halts the loop and blocks until it has exited.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
}

// cadence picks the next wait. Pending actions win over the server-configured
// interval so their resolution shows up quickly.
func (s *Scheduler) cadence(ctx context.Context) time.Duration {
	if s.pending != nil && s.pending.Active() {
		return s.fastInterval
	}
	return s.list.MonitoringInterval(ctx)
}
