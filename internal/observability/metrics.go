package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the yield strategy router.
type Metrics struct {
	// --- Operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpsDuration *prometheus.HistogramVec
	Sequence    prometheus.Gauge

	// --- Balances ---
	PrincipalTotal  *prometheus.GaugeVec
	PoolValueTotal  *prometheus.GaugeVec
	SurplusExtracted *prometheus.CounterVec
	DepositVolume    *prometheus.CounterVec
	WithdrawalVolume *prometheus.CounterVec

	// --- Two-Phase Withdrawal ---
	TotalWithdrawalsInitiated *prometheus.CounterVec
	TotalWithdrawalsExecuted  *prometheus.CounterVec
	TotalWithdrawalsExpired   *prometheus.CounterVec

	// --- Persistence ---
	PersistEventsWritten   prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Snapshot ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotSizeBytes prometheus.Gauge
	SnapshotLastSeq   prometheus.Gauge

	// --- Publisher ---
	PublishSent  *prometheus.CounterVec
	PublishDrops prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Operations
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_ops_applied_total",
			Help: "Operations successfully applied",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_ops_rejected_total",
			Help: "Operations rejected (auth, validation, time-lock)",
		}, []string{"op", "reason"}),

		OpsDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ysr_op_duration_seconds",
			Help:    "Time to apply a single operation",
			Buckets: latencyBuckets,
		}, []string{"op"}),

		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ysr_sequence",
			Help: "Current global event sequence",
		}),

		// Balances
		PrincipalTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ysr_principal_total",
			Help: "Total deposited principal per asset (base units)",
		}, []string{"asset"}),

		PoolValueTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ysr_pool_value_total",
			Help: "Redeemable pool value per asset (base units)",
		}, []string{"asset"}),

		SurplusExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_surplus_extracted_total",
			Help: "Yield skimmed through the withdrawer path (base units)",
		}, []string{"asset"}),

		DepositVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_deposit_volume_total",
			Help: "Deposited volume per asset (base units)",
		}, []string{"asset"}),

		WithdrawalVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_withdrawal_volume_total",
			Help: "Withdrawn principal volume per asset (base units)",
		}, []string{"asset"}),

		// Two-Phase Withdrawal
		TotalWithdrawalsInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_total_withdrawals_initiated_total",
			Help: "Total-withdrawal cycles opened",
		}, []string{"asset"}),

		TotalWithdrawalsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_total_withdrawals_executed_total",
			Help: "Total-withdrawal cycles executed",
		}, []string{"asset"}),

		TotalWithdrawalsExpired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_total_withdrawals_expired_total",
			Help: "Total-withdrawal cycles that lapsed unexecuted",
		}, []string{"asset"}),

		// Persistence
		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysr_persist_events_written_total",
			Help: "Events written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysr_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ysr_persist_batch_size",
			Help:    "Events per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ysr_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysr_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ysr_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Snapshot
		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysr_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ysr_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotSizeBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ysr_snapshot_size_bytes",
			Help: "Last snapshot size",
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ysr_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		// Publisher
		PublishSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_publish_sent_total",
			Help: "Events published to NATS",
		}, []string{"event_type"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ysr_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ysr_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ysr_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}
