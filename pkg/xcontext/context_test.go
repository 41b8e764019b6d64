package xcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    string `gorm:"primarykey"`
	Value int
}

func newTestContext(t *testing.T) context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&counter{}))
	require.NoError(t, db.Create(&counter{ID: "c"}).Error)

	return WithDB(context.Background(), db)
}

func TestDBTransaction_Rollback(t *testing.T) {
	ctx := newTestContext(t)

	txCtx := WithDBTransaction(ctx)
	require.NoError(t, DB(txCtx).Model(&counter{}).Where("id=?", "c").Update("value", 5).Error)
	WithRollbackDBTransaction(txCtx)

	var c counter
	require.NoError(t, DB(ctx).Take(&c, "id=?", "c").Error)
	require.Equal(t, 0, c.Value)
}

func TestDBTransaction_NestedCommitsOnce(t *testing.T) {
	ctx := newTestContext(t)

	outer := WithDBTransaction(ctx)
	defer WithRollbackDBTransaction(outer)

	inner := WithDBTransaction(outer)
	require.NoError(t, DB(inner).Model(&counter{}).Where("id=?", "c").Update("value", 7).Error)

	// The inner commit must not end the outer transaction.
	require.NoError(t, WithCommitDBTransaction(inner))
	WithRollbackDBTransaction(inner)
	require.NoError(t, DB(outer).Model(&counter{}).Where("id=?", "c").
		Update("value", gorm.Expr("value+?", 1)).Error)

	require.NoError(t, WithCommitDBTransaction(outer))

	var c counter
	require.NoError(t, DB(ctx).Take(&c, "id=?", "c").Error)
	require.Equal(t, 8, c.Value)
}

func TestRequestUserID(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "", RequestUserID(ctx))
	require.Equal(t, "user1", RequestUserID(WithRequestUserID(ctx, "user1")))
}
