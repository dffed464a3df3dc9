package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intervox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	QuestionsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_questions_served_total",
			Help: "Interview questions served, by source.",
		},
		[]string{"source"},
	)

	AdmissionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_admissions_rejected_total",
			Help: "Interview operations rejected by the admission gates, by reason.",
		},
		[]string{"reason"},
	)

	RateGateRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intervox_rate_gate_rejections_total",
			Help: "Requests rejected by the per-requester rate gate.",
		},
	)

	GenerationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_generation_calls_total",
			Help: "Calls issued to the generative model, by endpoint.",
		},
		[]string{"endpoint"},
	)

	GenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_generation_failures_total",
			Help: "Failed calls to the generative model, by endpoint.",
		},
		[]string{"endpoint"},
	)

	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervox_transcriptions_total",
			Help: "Audio transcription attempts, by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		QuestionsServedTotal,
		AdmissionsRejectedTotal,
		RateGateRejectionsTotal,
		GenerationCallsTotal,
		GenerationFailuresTotal,
		TranscriptionsTotal,
	)
}
