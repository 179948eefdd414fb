package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "remindd"

// Metrics groups the daemon's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RemindersClaimed   *prometheus.CounterVec
	RemindersDuplicate prometheus.Counter
	ChannelDeliveries  *prometheus.CounterVec
	TasksMissed        prometheus.Counter
	InstancesCreated   prometheus.Counter
	JobFailures        *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RemindersClaimed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_claimed_total",
			Help:      "Reminders claimed in the ledger and handed to the dispatcher",
		}, []string{"type"}),
		RemindersDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_duplicate_total",
			Help:      "Reminder claims rejected because the key was already recorded",
		}),
		ChannelDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_deliveries_total",
			Help:      "Per-channel delivery outcomes",
		}, []string{"channel", "status"}),
		TasksMissed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_missed_total",
			Help:      "Tasks moved from pending to missed by the daily rollover",
		}),
		InstancesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_instances_created_total",
			Help:      "Task instances materialized from recurring templates",
		}),
		JobFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_failures_total",
			Help:      "Scheduler job runs that returned an error",
		}, []string{"job"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_job_duration_seconds",
			Help:      "Duration of scheduler job runs",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"job"}),
	}
}

// The helpers below are safe on a nil *Metrics so callers can run without
// a registry.

func (m *Metrics) Claimed(reminderType string) {
	if m == nil {
		return
	}
	m.RemindersClaimed.WithLabelValues(reminderType).Inc()
}

func (m *Metrics) Duplicate() {
	if m == nil {
		return
	}
	m.RemindersDuplicate.Inc()
}

func (m *Metrics) Delivery(channel, status string) {
	if m == nil {
		return
	}
	m.ChannelDeliveries.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) Missed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TasksMissed.Add(float64(n))
}

func (m *Metrics) InstancesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InstancesCreated.Add(float64(n))
}

// ObserveJob records one scheduler job run.
func (m *Metrics) ObserveJob(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.JobFailures.WithLabelValues(job).Inc()
	}
}
