package entity

import (
	"database/sql"

	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/shopspring/decimal"
)

type ClaimType string

var (
	ClaimPrize     = enum.New(ClaimType("prize"))
	ClaimAffiliate = enum.New(ClaimType("affiliate"))
	ClaimMission   = enum.New(ClaimType("mission"))
)

type ClaimState string

var (
	ClaimCreated   = enum.New(ClaimState("created"))
	ClaimPrepared  = enum.New(ClaimState("prepared"))
	ClaimSubmitted = enum.New(ClaimState("submitted"))
	ClaimConfirmed = enum.New(ClaimState("confirmed"))
	ClaimFailed    = enum.New(ClaimState("failed"))
)

type ClaimStatus string

var (
	ClaimStatusPending    = enum.New(ClaimStatus("PENDING"))
	ClaimStatusProcessing = enum.New(ClaimStatus("PROCESSING"))
	ClaimStatusCompleted  = enum.New(ClaimStatus("COMPLETED"))
)

type Claim struct {
	Base

	UserID    string         `gorm:"index"`
	User      User           `gorm:"foreignKey:UserID"`
	TicketID  sql.NullString `gorm:"uniqueIndex"`
	LotteryID sql.NullString
	Amount    decimal.Decimal `gorm:"type:decimal(38,0)"`
	Type      ClaimType
	State     ClaimState `gorm:"index"`

	IsClaimed   bool
	TxSignature sql.NullString `gorm:"index"`

	PreparedBlockhash       string
	PreparedLastValidHeight uint64
	PreparedAt              sql.NullTime
	ClaimedAt               sql.NullTime
	ConfirmedAt             sql.NullTime
}

// Status derives the externally visible settlement status from the stored
// fields.
func (c *Claim) Status() ClaimStatus {
	switch {
	case c.IsClaimed:
		return ClaimStatusCompleted
	case c.TxSignature.Valid:
		return ClaimStatusProcessing
	default:
		return ClaimStatusPending
	}
}
