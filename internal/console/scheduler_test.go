package console_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/model"
)

var _ = Describe("Scheduler", func() {
	var (
		repo      *mockRepository
		triggers  []console.Trigger
		triggerMu sync.Mutex
		list      *console.ListController
	)

	BeforeEach(func() {
		repo = &mockRepository{}
		// A long server interval keeps timer ticks out of these specs.
		repo.monitoringIntervalFn = func(_ context.Context) (int, error) { return 60, nil }

		triggers = nil
		list = console.NewListController(repo, console.ListControllerConfig{
			OnSnapshot: func(s console.Snapshot) {
				triggerMu.Lock()
				triggers = append(triggers, s.Trigger)
				triggerMu.Unlock()
			},
		})
	})

	recorded := func() []console.Trigger {
		triggerMu.Lock()
		defer triggerMu.Unlock()
		return append([]console.Trigger(nil), triggers...)
	}

	It("performs the initial refresh on start", func() {
		scheduler := console.NewScheduler(list, console.SchedulerConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go scheduler.Run(ctx)
		defer scheduler.Stop()

		Eventually(recorded).Should(ContainElement(console.TriggerInitial))
	})

	It("refreshes on a kick with the given trigger", func() {
		scheduler := console.NewScheduler(list, console.SchedulerConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go scheduler.Run(ctx)
		defer scheduler.Stop()

		Eventually(recorded).Should(ContainElement(console.TriggerInitial))
		scheduler.Kick(console.TriggerManual)
		Eventually(recorded).Should(ContainElement(console.TriggerManual))
	})

	It("polls at the fast cadence while actions are pending", func() {
		pending := console.NewPendingSet()
		pending.Add(1, model.AlertStatusCompleted)

		scheduler := console.NewScheduler(list, console.SchedulerConfig{
			FastInterval: 10 * time.Millisecond,
			Pending:      pending,
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go scheduler.Run(ctx)
		defer scheduler.Stop()

		Eventually(recorded, time.Second).Should(ContainElement(console.TriggerPoll))
	})

	It("stops cleanly", func() {
		scheduler := console.NewScheduler(list, console.SchedulerConfig{})
		go scheduler.Run(context.Background())

		Eventually(recorded).Should(ContainElement(console.TriggerInitial))
		scheduler.Stop()
	})
})
