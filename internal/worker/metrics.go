package worker

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const jobName = "storybook_narration_worker"

var (
	// Свой реестр, чтобы не тащить в Pushgateway метрики процесса
	registry = prometheus.NewRegistry()

	tasksReceived = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_narration_tasks_received_total",
			Help: "Total number of narration tasks received by the worker.",
		},
	)
	tasksFailed = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_narration_tasks_failed_total",
			Help: "Total number of narration tasks failed, partitioned by failure reason.",
		},
		[]string{"reason"},
	)
	tasksSucceeded = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_narration_tasks_succeeded_total",
			Help: "Total number of narration tasks successfully processed.",
		},
	)
	taskDuration = promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storybook_narration_task_duration_seconds",
			Help:    "Time spent narrating a single page.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// MetricsPusher периодически отправляет метрики воркера в Pushgateway.
type MetricsPusher struct {
	pusher   *push.Pusher
	instance string
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewMetricsPusher создает клиент Pushgateway и сразу делает пробный push.
// pushgatewayURL: адрес Pushgateway (e.g., "http://localhost:9091")
func NewMetricsPusher(pushgatewayURL string, logger *zap.Logger) (*MetricsPusher, error) {
	if pushgatewayURL == "" {
		return nil, errors.New("pushgateway url is empty")
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		logger.Warn("Could not get hostname", zap.Error(err))
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	p := &MetricsPusher{
		pusher:   push.New(pushgatewayURL, jobName).Gatherer(registry).Grouping("instance", instanceID),
		instance: instanceID,
		logger:   logger.Named("MetricsPusher"),
	}
	if err := p.pusher.Push(); err != nil {
		return nil, fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	p.logger.Info("Initial push to Pushgateway successful", zap.String("job", jobName), zap.String("instance", instanceID))
	return p, nil
}

// Start запускает периодическую отправку. Останавливается через Stop.
func (p *MetricsPusher) Start(interval time.Duration) {
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if err := p.pusher.Push(); err != nil {
					p.logger.Warn("Error pushing metrics to Pushgateway", zap.Error(err))
				}
			}
		}
	}()
	p.logger.Info("Started periodic pusher", zap.Duration("interval", interval))
}

// Stop останавливает отправку и удаляет метрики инстанса из Pushgateway.
func (p *MetricsPusher) Stop() {
	if p.stop != nil {
		close(p.stop)
		<-p.done
		p.stop = nil
	}
	if err := p.pusher.Delete(); err != nil {
		p.logger.Warn("Error deleting metrics from Pushgateway", zap.Error(err))
		return
	}
	p.logger.Info("Deleted metrics from Pushgateway", zap.String("instance", p.instance))
}
