package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/powersol-lab/backend/internal/middleware"
	"github.com/powersol-lab/backend/pkg/prometheus"
	"github.com/powersol-lab/backend/pkg/router"
	"github.com/powersol-lab/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadServices()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    cfg.ApiServer.Address(),
		Handler: s.router.Handler(cfg.ApiServer),
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on port: %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stop")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Before(middleware.WithStartTime())
	s.router.AddCloser(middleware.Logger(), middleware.Prometheus())

	// These following APIs need authentication with the access token.
	authRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier(s.ctx)
	authRouter.Before(authVerifier.Middleware())
	{
		// Ticket API
		router.POST(authRouter, "/purchaseTickets", s.ticketDomain.Purchase)
		router.POST(authRouter, "/confirmPurchase", s.ticketDomain.ConfirmPurchase)
		router.GET(authRouter, "/getMyTickets", s.ticketDomain.GetMyTickets)

		// Claim API
		router.POST(authRouter, "/prepareClaim", s.claimDomain.Prepare)
		router.POST(authRouter, "/submitClaim", s.claimDomain.Submit)
		router.GET(authRouter, "/getClaimStatus", s.claimDomain.Status)
		router.GET(authRouter, "/getMyClaims", s.claimDomain.GetMyClaims)

		// Affiliate API
		router.GET(authRouter, "/getMyAffiliate", s.affiliateDomain.GetMyAffiliate)
		router.POST(authRouter, "/claimAffiliateEarnings", s.claimDomain.ClaimAffiliateEarnings)
		router.POST(authRouter, "/applyAffiliate", s.affiliateDomain.ApplyAffiliate)
		router.GET(authRouter, "/getMyAffiliateApplication", s.affiliateDomain.GetMyApplication)

		// Mission API
		router.GET(authRouter, "/getMyMissions", s.missionDomain.GetMyMissions)
		router.POST(authRouter, "/completeMission", s.missionDomain.CompleteMission)
	}

	// These following APIs are only for administrators.
	adminRouter := authRouter.Branch()
	adminRouter.Before(middleware.NewOnlyAdmin(s.userRepo).Middleware())
	{
		router.POST(adminRouter, "/setManualTier", s.affiliateDomain.SetManualTier)
		router.POST(adminRouter, "/removeManualTier", s.affiliateDomain.RemoveManualTier)
		router.GET(adminRouter, "/getTierHistory", s.affiliateDomain.GetTierHistory)
		router.GET(adminRouter, "/getRecentTierActions", s.affiliateDomain.GetRecentTierActions)
		router.GET(adminRouter, "/getAffiliateApplications", s.affiliateDomain.GetApplications)
		router.POST(adminRouter, "/reviewAffiliateApplication", s.affiliateDomain.ReviewApplication)
	}

	// Public API.
	router.GET(s.router, "/getLottery", s.lotteryDomain.Get)
	router.GET(s.router, "/getActiveLotteries", s.lotteryDomain.GetActive)
	router.GET(s.router, "/getLotteryTickets", s.ticketDomain.GetLotteryTickets)
	router.GET(s.router, "/getDraws", s.drawDomain.GetDraws)
	router.GET(s.router, "/getDraw", s.drawDomain.GetDraw)
	router.GET(s.router, "/getMissions", s.missionDomain.GetMissions)

	// Webhook API.
	router.POST(s.router, "/webhooks/randomness", s.randomnessDomain.ProcessCallback)

	s.router.Mount(http.MethodGet, "/metrics", prometheus.NewHandler())
}
