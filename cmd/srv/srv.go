package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/client"
	"github.com/powersol-lab/backend/internal/domain"
	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/migration"
	"github.com/powersol-lab/backend/pkg/api"
	"github.com/powersol-lab/backend/pkg/idutil"
	"github.com/powersol-lab/backend/pkg/kafka"
	"github.com/powersol-lab/backend/pkg/logger"
	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/router"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/powersol-lab/backend/pkg/xredis"

	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	ctx context.Context
	app *cli.App

	redisClient xredis.Client
	publisher   pubsub.Publisher
	gateway     ledger.Gateway
	oracle      client.RandomnessOracle

	userRepo        repository.UserRepository
	lotteryRepo     repository.LotteryRepository
	ticketRepo      repository.TicketRepository
	randomnessRepo  repository.RandomnessRequestRepository
	drawRepo        repository.DrawRepository
	claimRepo       repository.ClaimRepository
	affiliateRepo   repository.AffiliateRepository
	tierAuditRepo   repository.TierAuditRepository
	ledgerTxRepo    repository.LedgerTransactionRepository
	missionRepo     repository.UserMissionRepository
	applicationRepo repository.AffiliateApplicationRepository

	lotteryDomain    domain.LotteryDomain
	ticketDomain     domain.TicketDomain
	drawDomain       domain.DrawDomain
	randomnessDomain domain.RandomnessDomain
	claimDomain      domain.ClaimDomain
	affiliateDomain  domain.AffiliateDomain
	syncDomain       domain.SyncDomain
	missionDomain    domain.MissionDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	if err := idutil.Init(cfg.NodeID); err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	s.ctx = xcontext.WithHTTPClient(s.ctx, &http.Client{Timeout: 30 * time.Second})
	return nil
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.ConnectionString())
	case "sqlite":
		dialector = sqlite.Open(cfg.Database)
	default:
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		panic(err)
	}

	return db
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}

func (s *srv) migrateDB() {
	if err := migration.Migrate(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	if xcontext.Configs(s.ctx).Redis.Addr == "" {
		xcontext.Logger(s.ctx).Warnf("No redis is configured, cron leases are disabled")
		return
	}

	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}

	s.redisClient = redisClient
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx).Kafka
	if cfg.Addr == "" {
		xcontext.Logger(s.ctx).Warnf("No kafka is configured, events are dropped")
		s.publisher = kafka.NopPublisher{}
		return
	}

	publisher, err := kafka.NewPublisher(cfg.ClientID, strings.Split(cfg.Addr, ","))
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadLedgerGateway() {
	gateway, err := ledger.NewSolanaGateway(xcontext.Configs(s.ctx))
	if err != nil {
		panic(err)
	}

	s.gateway = gateway
}

func (s *srv) loadRandomnessOracle() {
	cfg := xcontext.Configs(s.ctx).Randomness
	s.oracle = client.NewRandomnessOracle(
		api.NewGenerator(cfg.OracleURLs...),
		cfg.OracleAPIKey,
		cfg.CallbackURL,
	)
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.lotteryRepo = repository.NewLotteryRepository()
	s.ticketRepo = repository.NewTicketRepository()
	s.randomnessRepo = repository.NewRandomnessRequestRepository()
	s.drawRepo = repository.NewDrawRepository()
	s.claimRepo = repository.NewClaimRepository()
	s.affiliateRepo = repository.NewAffiliateRepository()
	s.tierAuditRepo = repository.NewTierAuditRepository()
	s.ledgerTxRepo = repository.NewLedgerTransactionRepository()
	s.missionRepo = repository.NewUserMissionRepository()
	s.applicationRepo = repository.NewAffiliateApplicationRepository()
}

func (s *srv) loadDomains() {
	s.lotteryDomain = domain.NewLotteryDomain(s.lotteryRepo)
	s.missionDomain = domain.NewMissionDomain(s.missionRepo, s.userRepo, s.claimRepo)
	s.ticketDomain = domain.NewTicketDomain(s.lotteryRepo, s.ticketRepo, s.affiliateRepo,
		s.userRepo, s.ledgerTxRepo, s.missionDomain, s.gateway, s.publisher)
	s.drawDomain = domain.NewDrawDomain(s.lotteryRepo, s.ticketRepo, s.drawRepo,
		s.ledgerTxRepo, s.gateway, s.publisher)
	s.randomnessDomain = domain.NewRandomnessDomain(s.lotteryRepo, s.randomnessRepo,
		s.oracle, s.drawDomain)
	s.claimDomain = domain.NewClaimDomain(s.claimRepo, s.ticketRepo, s.lotteryRepo, s.drawRepo,
		s.affiliateRepo, s.userRepo, s.ledgerTxRepo, s.gateway, s.publisher)
	s.affiliateDomain = domain.NewAffiliateDomain(s.affiliateRepo, s.tierAuditRepo,
		s.applicationRepo, s.userRepo)
	s.syncDomain = domain.NewSyncDomain(s.lotteryRepo, s.ledgerTxRepo, s.ticketDomain,
		s.claimDomain, s.gateway, s.publisher)
}

// loadServices connects every collaborator and builds the domains on top of
// them.
func (s *srv) loadServices() {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadLedgerGateway()
	s.loadRandomnessOracle()
	s.loadRepos()
	s.loadDomains()
}
