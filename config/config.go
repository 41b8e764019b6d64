package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env      string
	LogLevel string

	// NodeID identifies this process in generated ids, 0 to 1023. Processes
	// sharing a database must use different values.
	NodeID int64

	Database   DatabaseConfigs
	ApiServer  APIServerConfigs
	Auth       AuthConfigs
	Redis      RedisConfigs
	Kafka      KafkaConfigs
	Solana     SolanaConfigs
	Randomness RandomnessConfigs
	Scheduler  SchedulerConfigs
	Retry      RetryConfigs
	Lottery    LotteryConfigs
	Affiliate  AffiliateConfigs
	Mission    MissionConfigs
	Prometheus ServerConfigs
}

type DatabaseConfigs struct {
	// Driver is one of mysql, postgres.
	Driver   string
	Host     string
	Port     string
	Database string
	User     string
	Password string
	LogLevel string
}

func (d *DatabaseConfigs) ConnectionString() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host,
			d.Port,
			d.User,
			d.Password,
			d.Database,
		)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type APIServerConfigs struct {
	ServerConfigs

	AllowedOrigins []string
	MaxLimit       int
	DefaultLimit   int
}

// AuthConfigs describes the access tokens issued by the auth service.
type AuthConfigs struct {
	TokenSecret   string
	TokenIssuer   string
	TokenAudience string
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr     string
	ClientID string
}

type SolanaConfigs struct {
	RPCs []string

	// ProgramID is the on-chain lottery program, base58.
	ProgramID string

	// TreasuryPrivateKey signs prize and affiliate payouts and draw memos, base58.
	TreasuryPrivateKey string

	ConfirmTimeout     time.Duration
	ConfirmInterval    time.Duration
	AlertOnSyncFailure bool
}

type RandomnessConfigs struct {
	OracleURLs     []string
	OracleAPIKey   string
	CallbackURL    string
	RequestTimeout time.Duration
}

type SchedulerConfigs struct {
	DrawInterval   time.Duration
	CycleInterval  time.Duration
	SyncInterval   time.Duration
	Concurrency    int
	SweepLeaseTime time.Duration
}

type RetryConfigs struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type LotteryConfigs struct {
	MaxTicketsPerPurchase int
	Presets               []LotteryPreset
}

// LotteryPreset describes how the next cycle of a lottery type is created.
type LotteryPreset struct {
	Type        string
	TicketPrice string // lamports
	MaxTickets  int
	Period      time.Duration
}

type AffiliateConfigs struct {
	// Tiers are ordered by level, starting at 1.
	Tiers []AffiliateTier
}

type AffiliateTier struct {
	Level             int
	CommissionPercent int
	MinReferrals      int
}

type MissionConfigs struct {
	// TicketPowerPoints is earned per paid ticket, keyed by lottery type.
	TicketPowerPoints map[string]int
	Missions          []MissionPreset
}

// MissionPreset describes a mission of the catalogue. Goal tells what counts
// as progress: tickets, lottery_types, referrals or manual.
type MissionPreset struct {
	Key         string
	Type        string // daily, weekly, social or activity
	Name        string
	Description string
	Goal        string
	Target      int
	PowerPoints int
	Reward      string // lamports, empty when the mission pays nothing
}

// Default returns the configurations used when no file is given.
func Default() Configs {
	return Configs{
		Env:      "local",
		LogLevel: "info",
		Database: DatabaseConfigs{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     "3306",
			Database: "powersol",
			User:     "root",
			LogLevel: "error",
		},
		ApiServer: APIServerConfigs{
			ServerConfigs: ServerConfigs{Port: "8080"},
			MaxLimit:      100,
			DefaultLimit:  50,
		},
		Auth: AuthConfigs{
			TokenIssuer:   "powersol-auth",
			TokenAudience: "powersol-api",
		},
		Redis: RedisConfigs{Addr: "localhost:6379"},
		Kafka: KafkaConfigs{Addr: "localhost:9092", ClientID: "powersol"},
		Solana: SolanaConfigs{
			RPCs:            []string{"https://api.devnet.solana.com"},
			ConfirmTimeout:  60 * time.Second,
			ConfirmInterval: 2 * time.Second,
		},
		Randomness: RandomnessConfigs{
			RequestTimeout: 10 * time.Minute,
		},
		Scheduler: SchedulerConfigs{
			DrawInterval:   5 * time.Minute,
			CycleInterval:  10 * time.Minute,
			SyncInterval:   5 * time.Minute,
			Concurrency:    4,
			SweepLeaseTime: 4 * time.Minute,
		},
		Retry: RetryConfigs{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Lottery: LotteryConfigs{
			MaxTicketsPerPurchase: 100,
			Presets: []LotteryPreset{
				{Type: "tri_daily", TicketPrice: "100000000", MaxTickets: 1000, Period: 8 * time.Hour},
				{Type: "jackpot", TicketPrice: "200000000", MaxTickets: 5000, Period: 30 * 24 * time.Hour},
				{Type: "grand_prize", TicketPrice: "330000000", MaxTickets: 10000, Period: 365 * 24 * time.Hour},
				{Type: "xmas", TicketPrice: "200000000", MaxTickets: 7500, Period: 365 * 24 * time.Hour},
			},
		},
		Affiliate: AffiliateConfigs{
			Tiers: []AffiliateTier{
				{Level: 1, CommissionPercent: 5, MinReferrals: 0},
				{Level: 2, CommissionPercent: 10, MinReferrals: 100},
				{Level: 3, CommissionPercent: 20, MinReferrals: 1000},
				{Level: 4, CommissionPercent: 30, MinReferrals: 5000},
			},
		},
		Mission: MissionConfigs{
			TicketPowerPoints: map[string]int{
				"tri_daily":   10,
				"jackpot":     20,
				"grand_prize": 30,
				"xmas":        20,
			},
			Missions: []MissionPreset{
				{Key: "daily_login", Type: "daily", Name: "Daily login",
					Description: "Log in today", Goal: "manual", Target: 1, PowerPoints: 10},
				{Key: "daily_buy_ticket", Type: "daily", Name: "Daily ticket",
					Description: "Buy a ticket today", Goal: "tickets", Target: 1, PowerPoints: 25},
				{Key: "weekly_buy_2_different", Type: "weekly", Name: "Explorer",
					Description: "Buy tickets of 2 different lotteries this week", Goal: "lottery_types",
					Target: 2, PowerPoints: 50},
				{Key: "activity_explore_transparency", Type: "activity", Name: "Transparency",
					Description: "Visit the transparency page", Goal: "manual", Target: 1, PowerPoints: 25},
				{Key: "activity_buy_10_tickets", Type: "activity", Name: "Collector",
					Description: "Buy 10 tickets", Goal: "tickets", Target: 10, PowerPoints: 100},
				{Key: "activity_buy_all_lotteries", Type: "activity", Name: "Completionist",
					Description: "Buy tickets of every lottery", Goal: "lottery_types", Target: 4,
					PowerPoints: 150, Reward: "10000000"},
				{Key: "social_invite_3", Type: "social", Name: "Friends",
					Description: "Get 3 validated referrals", Goal: "referrals", Target: 3, PowerPoints: 100},
				{Key: "social_invite_10", Type: "social", Name: "Community",
					Description: "Get 10 validated referrals", Goal: "referrals", Target: 10, PowerPoints: 300,
					Reward: "50000000"},
				{Key: "social_invite_100", Type: "social", Name: "Influencer",
					Description: "Get 100 validated referrals", Goal: "referrals", Target: 100,
					PowerPoints: 1000, Reward: "500000000"},
			},
		},
		Prometheus: ServerConfigs{Port: "2112"},
	}
}

// Load reads the TOML file at path on top of Default and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, fmt.Errorf("cannot decode config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Configs) {
	setString(&cfg.Env, "ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Database, "DB_DATABASE")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.ApiServer.Port, "API_PORT")
	setString(&cfg.Auth.TokenSecret, "TOKEN_SECRET")
	setString(&cfg.Auth.TokenIssuer, "TOKEN_ISSUER")
	setString(&cfg.Auth.TokenAudience, "TOKEN_AUDIENCE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Kafka.Addr, "KAFKA_ADDR")
	setString(&cfg.Solana.ProgramID, "SOLANA_PROGRAM_ID")
	setString(&cfg.Solana.TreasuryPrivateKey, "SOLANA_TREASURY_PRIVATE_KEY")
	setString(&cfg.Randomness.OracleAPIKey, "RANDOMNESS_ORACLE_API_KEY")
	setString(&cfg.Randomness.CallbackURL, "RANDOMNESS_CALLBACK_URL")

	if v := os.Getenv("NODE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NodeID = id
		}
	}

	if v := os.Getenv("SOLANA_RPC"); v != "" {
		cfg.Solana.RPCs = strings.Split(v, ",")
	}

	if v := os.Getenv("RANDOMNESS_ORACLE_URL"); v != "" {
		cfg.Randomness.OracleURLs = strings.Split(v, ",")
	}

	if v := os.Getenv("SOLANA_ALERT_ON_SYNC_FAILURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Solana.AlertOnSyncFailure = b
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
