package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/powersol-lab/backend/internal/domain/cron"
	"github.com/powersol-lab/backend/pkg/prometheus"
	"github.com/powersol-lab/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.loadServices()

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		cfg := xcontext.Configs(s.ctx).Prometheus
		xcontext.Logger(s.ctx).Infof("Serving metrics on port: %s", cfg.Port)
		if err := http.ListenAndServe(cfg.Address(), prometheus.NewHandler()); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot serve metrics: %v", err)
		}
	}()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewDrawSchedulerCronJob(
		ctx, s.lotteryRepo, s.randomnessDomain, s.redisClient))
	cronJobManager.Register(cron.NewLotteryCycleCronJob(ctx, s.lotteryDomain))
	cronJobManager.Register(cron.NewLedgerSyncCronJob(ctx, s.syncDomain))

	cronJobManager.Start(ctx)
	return nil
}
