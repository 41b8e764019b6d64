package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	LedgerTransactionFailure   = "ledger_transaction_failure"
	TicketsAllocatedTotal      = "tickets_allocated_total"
	LotteryDrawsTotal          = "lottery_draws_total"
	ClaimsSettledTotal         = "claims_settled_total"
	LedgerSyncDriftTotal       = "ledger_sync_drift_total"
	CronJobDurationSeconds     = "cron_job_duration_seconds"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"method", "status_code"}),
		LedgerTransactionFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LedgerTransactionFailure,
			Help: "Count of all ledger transaction failure",
		}, []string{"method"}),
		TicketsAllocatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: TicketsAllocatedTotal,
			Help: "Count of all allocated ticket numbers",
		}, []string{"type"}),
		LotteryDrawsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LotteryDrawsTotal,
			Help: "Count of all completed draws",
		}, []string{"type"}),
		ClaimsSettledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ClaimsSettledTotal,
			Help: "Count of all claims marked as claimed",
		}, []string{"type"}),
		LedgerSyncDriftTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: LedgerSyncDriftTotal,
			Help: "Count of fields found different between the store and the ledger",
		}, []string{"field"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"method", "status_code"}),
		CronJobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: CronJobDurationSeconds,
			Help: "Duration of all cron job runs",
		}, []string{"job"}),
	}
)
