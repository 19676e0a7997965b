package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels calls that completed normally.
	OutcomeSuccess = "success"
	// OutcomeError labels calls that failed (transport or protocol).
	OutcomeError = "error"
)

var (
	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetgap_console",
			Name:      "refreshes_total",
			Help:      "Alert list refreshes, partitioned by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	analysisFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleetgap_console",
			Name:      "analysis_fetch_seconds",
			Help:      "Gap analysis fetch latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 300, 900},
		},
		[]string{"outcome"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetgap_console",
			Name:      "lifecycle_actions_total",
			Help:      "Lifecycle actions dispatched, partitioned by kind and outcome.",
		},
		[]string{"action", "outcome"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fleetgap_console",
			Name:      "ws_clients",
			Help:      "Currently connected dashboard WebSocket clients.",
		},
	)
)

// Register attaches console collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		refreshesTotal,
		analysisFetchSeconds,
		actionsTotal,
		wsClients,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRefresh records one list refresh attempt.
func ObserveRefresh(trigger string, err error) {
	refreshesTotal.WithLabelValues(trigger, outcome(err)).Inc()
}

// ObserveAnalysisFetch records an analysis fetch duration and outcome.
func ObserveAnalysisFetch(duration time.Duration, err error) {
	if duration < 0 {
		duration = 0
	}
	analysisFetchSeconds.WithLabelValues(outcome(err)).Observe(duration.Seconds())
}

// ObserveAction records one dispatched lifecycle action.
func ObserveAction(action string, err error) {
	actionsTotal.WithLabelValues(action, outcome(err)).Inc()
}

// WSClientConnected tracks WebSocket client connects/disconnects.
func WSClientConnected(delta int) {
	wsClients.Add(float64(delta))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
