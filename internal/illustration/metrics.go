package illustration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var imageRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storybook_image_requests_total",
		Help: "Total number of image generation requests.",
	},
	[]string{"provider", "status"},
)
