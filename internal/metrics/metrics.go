// Package metrics records build-run metrics and exports them in the
// Prometheus text format for a node_exporter textfile collector.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes used as the stage label value.
const (
	OutcomeBuilt   = "built"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Recorder owns a private registry; nothing is registered globally.
type Recorder struct {
	reg           *prometheus.Registry
	stageDuration *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	lastRun       prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "facsimilab",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of each build stage.",
		}, []string{"stage", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facsimilab",
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by result.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facsimilab",
			Name:      "last_run_success",
			Help:      "1 if the last pipeline run succeeded, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facsimilab",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pipeline run finished.",
		}),
	}
	r.reg.MustRegister(r.stageDuration, r.notifications, r.lastSuccess, r.lastRun)
	return r
}

// ObserveStage records how long a stage took and how it ended.
func (r *Recorder) ObserveStage(stage, outcome string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage, outcome).Set(d.Seconds())
}

// Notification counts one delivery attempt.
func (r *Recorder) Notification(err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	r.notifications.WithLabelValues(result).Inc()
}

// RunFinished records the run outcome.
func (r *Recorder) RunFinished(ok bool, at time.Time) {
	if ok {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	r.lastRun.Set(float64(at.Unix()))
}

// Gatherer exposes the registry, mostly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create metrics directory for %s", path)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.Wrap(err, "write metrics textfile")
	}
	return nil
}
