package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder groups the counters the oracle exports. Each instance registers
// on its own registerer so tests can build as many as they like.
type Recorder struct {
	Submissions    *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	PollRequests   *prometheus.CounterVec
	PollDuration   prometheus.Histogram
	Outcomes       *prometheus.CounterVec
	ActiveTrackers prometheus.Gauge
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "submissions_total",
			Help:      "Analyses submitted to the backend, by whether the backend accepted them.",
		}, []string{"result"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "validation_rejections_total",
			Help:      "Form submissions rejected before reaching the backend.",
		}, []string{"reason"}),
		PollRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "poll_requests_total",
			Help:      "Workflow status fetches, by result.",
		}, []string{"result"}),
		PollDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oracle",
			Name:      "poll_duration_seconds",
			Help:      "Latency of workflow status fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "analysis_outcomes_total",
			Help:      "Terminal outcomes of tracked analyses.",
		}, []string{"outcome"}),
		ActiveTrackers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "active_trackers",
			Help:      "Poll loops currently running.",
		}),
	}
}

// Nop returns a Recorder backed by a throwaway registry.
func Nop() *Recorder {
	return NewRecorder(prometheus.NewRegistry())
}
