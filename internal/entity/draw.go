package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Draw keeps the material needed to re-check a draw publicly: the oracle
// request, the raw randomness and the ticket count it was reduced against.
type Draw struct {
	Base

	LotteryID      string  `gorm:"uniqueIndex"`
	Lottery        Lottery `gorm:"foreignKey:LotteryID"`
	RequestID      string
	Randomness     string
	ProofDigest    string
	Proof          Map
	TicketCount    uint32
	WinningTicket  uint32
	WinnerTicketID string
	WinnerUserID   string
	PrizeAmount    decimal.Decimal `gorm:"type:decimal(38,0)"`
	DrawnAt        time.Time       `gorm:"index"`
	TxSignature    sql.NullString
}
