package testutil

import (
	"context"
	"time"

	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/pkg/logger"
	"github.com/powersol-lab/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func MockConfigs() config.Configs {
	cfg := config.Default()
	cfg.ApiServer.MaxLimit = 50
	cfg.ApiServer.DefaultLimit = 10
	cfg.Auth.TokenSecret = "secret"
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Randomness.RequestTimeout = time.Minute
	return cfg
}

// MockContext returns a context holding a fresh in-memory database with every
// table migrated and the fixtures inserted.
func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// Every connection of an in-memory sqlite gets its own database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, MockConfigs())
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	CreateFixture(ctx)

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}
