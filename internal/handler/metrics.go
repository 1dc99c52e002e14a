package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storiesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_stories_generated_total",
			Help: "Total number of story generation requests by outcome.",
		},
		[]string{"status"},
	)

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_token_verifications_total",
			Help: "Total number of access token verification attempts by status.",
		},
		[]string{"status"},
	)
)
