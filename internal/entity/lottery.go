package entity

import (
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/shopspring/decimal"
)

type LotteryType string

var (
	LotteryTriDaily   = enum.New(LotteryType("tri_daily"))
	LotteryJackpot    = enum.New(LotteryType("jackpot"))
	LotteryGrandPrize = enum.New(LotteryType("grand_prize"))
	LotteryXmas       = enum.New(LotteryType("xmas"))
)

type Lottery struct {
	Base

	OnchainID      uint64 `gorm:"uniqueIndex"`
	Type           LotteryType
	TicketPrice    decimal.Decimal `gorm:"type:decimal(38,0)"`
	MaxTickets     uint32
	CurrentTickets uint32
	PrizePool      decimal.Decimal `gorm:"type:decimal(38,0)"`
	DrawTimestamp  time.Time       `gorm:"index"`

	IsDrawn         bool `gorm:"index"`
	WinningTicket   sql.NullInt32
	DrawTxSignature sql.NullString

	// RandomnessRequestedAt is set while a randomness request is pending. A
	// request older than the configured timeout is treated as abandoned.
	RandomnessRequestedAt sql.NullTime
}

// DrawDue reports whether the lottery reached its draw condition at now.
func (l *Lottery) DrawDue(now time.Time) bool {
	return !l.IsDrawn && !l.DrawTimestamp.After(now) && l.CurrentTickets > 0
}
