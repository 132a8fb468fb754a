// Package stats registers the client's Prometheus counters and exposes a
// thin update surface to the orchestrator, mirroring stats/common_prom.go's
// separation of metric registration from metric update.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tracker is the read-only-after-construction set of counters updated by
// the orchestrator on every fragment outcome and intent emission.
type Tracker struct {
	FragmentOK      *prometheus.CounterVec
	FragmentTimeout *prometheus.CounterVec
	FragmentError   *prometheus.CounterVec
	RepairIntents   prometheus.Counter
	DeleteIntents   prometheus.Counter
}

// New registers every counter against reg and returns the Tracker. reg is
// typically a *prometheus.Registry owned by the caller; New never creates
// its own registry, so multiple Clients in the same process can share one.
func New(reg prometheus.Registerer) (*Tracker, error) {
	t := &Tracker{
		FragmentOK: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hd_fragment_ok_total",
			Help: "Fragment requests that completed with a healthy (2xx, CRC-verified where applicable) reply.",
		}, []string{"op"}),
		FragmentTimeout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hd_fragment_timeout_total",
			Help: "Fragment requests that timed out.",
		}, []string{"op"}),
		FragmentError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hd_fragment_error_total",
			Help: "Fragment requests that failed for a reason other than a timeout (HTTP error, corrupted data, transport failure).",
		}, []string{"op"}),
		RepairIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hd_repair_intents_total",
			Help: "Repair intents persisted to the error agent.",
		}),
		DeleteIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hd_delete_intents_total",
			Help: "Delete intents persisted to the error agent.",
		}),
	}
	for _, c := range []prometheus.Collector{t.FragmentOK, t.FragmentTimeout, t.FragmentError, t.RepairIntents, t.DeleteIntents} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ObserveFragment records one fragment outcome for op ("put", "get", "delete").
func (t *Tracker) ObserveFragment(op string, ok bool, timeout bool) {
	switch {
	case ok:
		t.FragmentOK.WithLabelValues(op).Inc()
	case timeout:
		t.FragmentTimeout.WithLabelValues(op).Inc()
	default:
		t.FragmentError.WithLabelValues(op).Inc()
	}
}

func (t *Tracker) ObserveRepairIntent() { t.RepairIntents.Inc() }
func (t *Tracker) ObserveDeleteIntent() { t.DeleteIntents.Inc() }
