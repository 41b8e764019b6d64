package entity

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Affiliate struct {
	Base

	UserID          string `gorm:"uniqueIndex"`
	User            User   `gorm:"foreignKey:UserID"`
	ReferralCode    string `gorm:"uniqueIndex"`
	ManualTier      sql.NullInt32
	PendingEarnings decimal.Decimal `gorm:"type:decimal(38,0)"`
	TotalEarned     decimal.Decimal `gorm:"type:decimal(38,0)"`
}

type Referral struct {
	Base

	ReferrerAffiliateID   string    `gorm:"index"`
	Referrer              Affiliate `gorm:"foreignKey:ReferrerAffiliateID"`
	ReferredUserID        string    `gorm:"uniqueIndex"`
	IsValidated           bool
	FirstPurchaseAt       sql.NullTime
	TotalTicketsPurchased int
	TotalValue            decimal.Decimal `gorm:"type:decimal(38,0)"`
	TotalCommissionEarned decimal.Decimal `gorm:"type:decimal(38,0)"`
}
