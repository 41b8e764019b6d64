package cron

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/domain"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type LedgerSyncCronJob struct {
	syncDomain domain.SyncDomain
	interval   time.Duration
}

func NewLedgerSyncCronJob(ctx context.Context, syncDomain domain.SyncDomain) *LedgerSyncCronJob {
	return &LedgerSyncCronJob{
		syncDomain: syncDomain,
		interval:   xcontext.Configs(ctx).Scheduler.SyncInterval,
	}
}

func (job *LedgerSyncCronJob) Name() string {
	return "ledger_sync"
}

func (job *LedgerSyncCronJob) Do(ctx context.Context) {
	if err := job.syncDomain.Sync(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Ledger sync finished with errors: %v", err)
	}
}

// The first sync runs one interval after start.
func (job *LedgerSyncCronJob) RunNow() bool {
	return false
}

func (job *LedgerSyncCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
