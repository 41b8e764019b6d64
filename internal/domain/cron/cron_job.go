package cron

import (
	"context"
	"sync"
	"time"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type CronJob interface {
	Name() string
	Do(context.Context)
	RunNow() bool
	Next() time.Time
}

type CronJobManager struct {
	mutex   sync.Mutex
	wait    sync.WaitGroup
	jobs    map[CronJob]*time.Timer
	stopped bool
}

func NewCronJobManager() *CronJobManager {
	return &CronJobManager{jobs: make(map[CronJob]*time.Timer)}
}

func (m *CronJobManager) Register(job CronJob) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.jobs[job] = nil
}

// Start runs every registered job on its own schedule and blocks until the
// manager is cancelled or ctx is done.
func (m *CronJobManager) Start(ctx context.Context) {
	xcontext.Logger(ctx).Infof("Cron job manager started")

	m.mutex.Lock()
	for job := range m.jobs {
		m.wait.Add(1)
		if job.RunNow() {
			go m.run(ctx, job)
		} else {
			m.scheduleLocked(ctx, job)
		}
	}
	m.mutex.Unlock()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			m.Cancel(ctx)
		case <-stop:
		}
	}()

	m.wait.Wait()
	close(stop)
	xcontext.Logger(ctx).Infof("Cron job manager stopped")
}

// Cancel stops scheduling. A job which is running finishes its current run.
func (m *CronJobManager) Cancel(ctx context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stopped {
		return
	}

	m.stopped = true
	for job, timer := range m.jobs {
		// A timer which already fired belongs to a running job, which releases
		// itself when it tries to schedule again.
		if timer != nil && timer.Stop() {
			m.wait.Done()
			continue
		}

		xcontext.Logger(ctx).Infof("Wait for %s to finish", job.Name())
	}
}

func (m *CronJobManager) run(ctx context.Context, job CronJob) {
	start := time.Now()
	xcontext.Logger(ctx).Infof("%s is running...", job.Name())
	job.Do(ctx)

	elapsed := time.Since(start)
	common.PromHistograms[common.CronJobDurationSeconds].WithLabelValues(job.Name()).Observe(elapsed.Seconds())
	xcontext.Logger(ctx).Infof("%s ok in %s", job.Name(), elapsed)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.scheduleLocked(ctx, job)
}

func (m *CronJobManager) scheduleLocked(ctx context.Context, job CronJob) {
	if m.stopped {
		m.wait.Done()
		return
	}

	m.jobs[job] = time.AfterFunc(time.Until(job.Next()), func() { m.run(ctx, job) })
}
