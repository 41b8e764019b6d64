package entity

import (
	"context"

	"github.com/powersol-lab/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&Lottery{},
		&Ticket{},
		&RandomnessRequest{},
		&Draw{},
		&Claim{},
		&Affiliate{},
		&Referral{},
		&TierAuditEntry{},
		&LedgerTransaction{},
		&UserMission{},
		&AffiliateApplication{},
	)
}
