package speech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	speechRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_speech_requests_total",
			Help: "Total number of text-to-speech provider requests.",
		},
		[]string{"provider", "status"},
	)
	speechCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_speech_cache_lookups_total",
			Help: "Speech cache lookups partitioned by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)
