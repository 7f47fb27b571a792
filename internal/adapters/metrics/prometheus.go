package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxbridge_sessions_active",
		Help: "Number of active voice sessions",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_messages_total",
		Help: "Total messages inserted, by role",
	}, []string{"role"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxbridge_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})

	STTReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_stt_reconnects_total",
		Help: "Total STT connection reconnect attempts",
	}, []string{"outcome"})

	TTSRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxbridge_tts_request_duration_seconds",
		Help:    "TTS synthesis duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5},
	})

	MemoryExtractionTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_memory_extraction_tasks_total",
		Help: "Total memory extraction tasks processed, by outcome",
	}, []string{"outcome"})

	MemoryFactsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_memory_facts_pruned_total",
		Help: "Total user facts pruned for exceeding the per-user cap",
	})

	MemoryGuardOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_memory_guard_open_total",
		Help: "Total times the memory service error guard tripped open",
	})

	PluginResourceViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_plugin_resource_violations_total",
		Help: "Total plugin resource-limit violations, by plugin type",
	}, []string{"plugin_type"})
)
