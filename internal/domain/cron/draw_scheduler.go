package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/domain"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/powersol-lab/backend/pkg/xredis"
	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/semaphore"
)

const drawSchedulerName = "draw_scheduler"

// DrawSchedulerCronJob asks randomness for every lottery which reached its
// draw time. The redis lease keeps concurrent schedulers from sweeping at the
// same time, the draw itself is still guarded by the store.
type DrawSchedulerCronJob struct {
	lotteryRepo      repository.LotteryRepository
	randomnessDomain domain.RandomnessDomain
	redisClient      xredis.Client
	interval         time.Duration
	concurrency      int
	leaseTime        time.Duration

	inflight *xsync.MapOf[string, struct{}]
}

func NewDrawSchedulerCronJob(
	ctx context.Context,
	lotteryRepo repository.LotteryRepository,
	randomnessDomain domain.RandomnessDomain,
	redisClient xredis.Client,
) *DrawSchedulerCronJob {
	cfg := xcontext.Configs(ctx).Scheduler
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &DrawSchedulerCronJob{
		lotteryRepo:      lotteryRepo,
		randomnessDomain: randomnessDomain,
		redisClient:      redisClient,
		interval:         cfg.DrawInterval,
		concurrency:      concurrency,
		leaseTime:        cfg.SweepLeaseTime,
		inflight:         xsync.NewMapOf[struct{}](),
	}
}

func (job *DrawSchedulerCronJob) Name() string {
	return drawSchedulerName
}

func (job *DrawSchedulerCronJob) Do(ctx context.Context) {
	if err := job.sweep(ctx); err != nil {
		xcontext.Logger(ctx).Warnf("Draw sweep failed: %v", err)
	}
}

// sweep requests randomness of every lottery due for draw. A failed lottery
// never stops the others, their errors are joined in the result.
func (job *DrawSchedulerCronJob) sweep(ctx context.Context) error {
	if !job.acquireLease(ctx) {
		return nil
	}

	lotteries, err := job.lotteryRepo.GetDueForDraw(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("cannot get lotteries due for draw: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	sem := semaphore.NewWeighted(int64(job.concurrency))
	for i := range lotteries {
		lottery := lotteries[i]
		if lottery.CurrentTickets == 0 {
			xcontext.Logger(ctx).Infof("Skip drawing lottery %s, no ticket was sold", lottery.ID)
			continue
		}

		if _, loaded := job.inflight.LoadOrStore(lottery.ID, struct{}{}); loaded {
			xcontext.Logger(ctx).Debugf("Lottery %s is being drawn by another sweep", lottery.ID)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			job.inflight.Delete(lottery.ID)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer job.inflight.Delete(lottery.ID)

			requestID, err := job.randomnessDomain.RequestRandomness(ctx, lottery.ID)
			if err != nil {
				if errorx.HasCode(err, errorx.Conflict) || errorx.HasCode(err, errorx.LotteryClosed) {
					xcontext.Logger(ctx).Debugf("Skip drawing lottery %s: %v", lottery.ID, err)
					return
				}

				mu.Lock()
				defer mu.Unlock()
				errs = append(errs, fmt.Errorf("cannot request randomness of lottery %s: %w", lottery.ID, err))
				return
			}

			xcontext.Logger(ctx).Infof("Lottery %s waits for randomness %s", lottery.ID, requestID)
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}

// acquireLease reports whether this process owns the sweep. Without redis the
// sweep still runs.
func (job *DrawSchedulerCronJob) acquireLease(ctx context.Context) bool {
	if job.redisClient == nil {
		return true
	}

	owner, err := os.Hostname()
	if err != nil {
		owner = drawSchedulerName
	}

	ok, err := job.redisClient.SetNX(ctx, common.RedisKeyCronLease(drawSchedulerName), owner, job.leaseTime)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot acquire sweep lease, sweep anyway: %v", err)
		return true
	}

	if !ok {
		xcontext.Logger(ctx).Debugf("Another scheduler holds the sweep lease")
		return false
	}

	return true
}

func (job *DrawSchedulerCronJob) RunNow() bool {
	return true
}

func (job *DrawSchedulerCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
