package cron

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/internal/domain"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type LotteryCycleCronJob struct {
	lotteryDomain domain.LotteryDomain
	interval      time.Duration
}

func NewLotteryCycleCronJob(ctx context.Context, lotteryDomain domain.LotteryDomain) *LotteryCycleCronJob {
	return &LotteryCycleCronJob{
		lotteryDomain: lotteryDomain,
		interval:      xcontext.Configs(ctx).Scheduler.CycleInterval,
	}
}

func (job *LotteryCycleCronJob) Name() string {
	return "lottery_cycle"
}

func (job *LotteryCycleCronJob) Do(ctx context.Context) {
	created, err := job.lotteryDomain.CreateNextCycles(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create next lottery cycles: %v", err)
		return
	}

	for _, lottery := range created {
		xcontext.Logger(ctx).Infof("Opened %s lottery %s (onchain %d), drawn at %s",
			lottery.Type, lottery.ID, lottery.OnchainID, lottery.DrawTimestamp.Format(time.RFC3339))
	}
}

func (job *LotteryCycleCronJob) RunNow() bool {
	return true
}

func (job *LotteryCycleCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
