// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the reward economy.
var (
	// Counters.
	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total number of successful daily check-ins",
		},
		[]string{"streak"}, // maintained or reset
	)

	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Total points credited to balances",
		},
		[]string{"source"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rejections_total",
			Help: "Total number of rejected economy operations",
		},
		[]string{"operation", "code"},
	)

	BoxesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxes_generated_total",
			Help: "Total number of reward boxes generated",
		},
		[]string{"rarity"},
	)

	BoxesOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxes_opened_total",
			Help: "Total number of reward boxes opened",
		},
		[]string{"rarity"},
	)

	BoxesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxes_expired_total",
			Help: "Total number of reward boxes that expired unopened",
		},
	)

	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of task completions",
		},
		[]string{"task"},
	)

	// Histograms.
	BoxFinalPoints = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "box_final_points",
			Help:    "Points credited per opened box after the multiplier",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10 to ~5k points
		},
		[]string{"rarity"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"job"},
	)

	LedgerMismatchedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_mismatched_accounts",
			Help: "Accounts whose balance differed from their ledger sum at the last reconciliation",
		},
	)

	// Badge gamification metrics.
	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge", "event"},
	)
)

// RecordCheckin records a successful check-in.
func RecordCheckin(maintained bool) {
	label := "reset"
	if maintained {
		label = "maintained"
	}
	CheckinsTotal.WithLabelValues(label).Inc()
}

// RecordPointsAwarded adds credited points for a ledger source.
func RecordPointsAwarded(source string, points int64) {
	if points <= 0 {
		return
	}
	PointsAwardedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordRejection records a rejected operation by its rejection code.
func RecordRejection(operation, code string) {
	RejectionsTotal.WithLabelValues(operation, code).Inc()
}

// RecordBoxGenerated records a generated box.
func RecordBoxGenerated(rarity string) {
	BoxesGeneratedTotal.WithLabelValues(rarity).Inc()
}

// RecordBoxOpened records an opened box and the points it paid.
func RecordBoxOpened(rarity string, finalPoints int64) {
	BoxesOpenedTotal.WithLabelValues(rarity).Inc()
	BoxFinalPoints.WithLabelValues(rarity).Observe(float64(finalPoints))
}

// RecordBoxesExpired adds the number of boxes an expiry sweep marked.
func RecordBoxesExpired(count int64) {
	BoxesExpiredTotal.Add(float64(count))
}

// RecordTaskCompleted records a task completion.
func RecordTaskCompleted(taskCode string) {
	TasksCompletedTotal.WithLabelValues(taskCode).Inc()
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(badgeCode, event string) {
	BadgesAwardedTotal.WithLabelValues(badgeCode, event).Inc()
}

// SetLedgerMismatches sets the mismatch count found by the last reconciliation.
func SetLedgerMismatches(count int) {
	LedgerMismatchedAccounts.Set(float64(count))
}
