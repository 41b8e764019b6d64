package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	Base

	UserID       string  `gorm:"index"`
	User         User    `gorm:"foreignKey:UserID"`
	LotteryID    string  `gorm:"uniqueIndex:idx_ticket_lottery_number"`
	Lottery      Lottery `gorm:"foreignKey:LotteryID"`
	TicketNumber uint32  `gorm:"uniqueIndex:idx_ticket_lottery_number"`
	PurchaseID   string  `gorm:"index"`

	PurchasePrice decimal.Decimal `gorm:"type:decimal(38,0)"`
	TxSignature   string
	IsWinner      bool
}

// PendingTxSignature is the placeholder transaction reference of a purchase
// whose payment is not confirmed yet.
func PendingTxSignature(purchaseID string) string {
	return fmt.Sprintf("pending:%s", purchaseID)
}
