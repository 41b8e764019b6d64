package entity

import (
	"github.com/powersol-lab/backend/pkg/enum"
)

type LedgerTransactionKind string

var (
	LedgerTransactionTicketPurchase = enum.New(LedgerTransactionKind("ticket_purchase"))
	LedgerTransactionPrizeClaim     = enum.New(LedgerTransactionKind("prize_claim"))
	LedgerTransactionAffiliateClaim = enum.New(LedgerTransactionKind("affiliate_claim"))
	LedgerTransactionMissionClaim   = enum.New(LedgerTransactionKind("mission_claim"))
	LedgerTransactionDrawMemo       = enum.New(LedgerTransactionKind("draw_memo"))
)

type LedgerTransactionStatus string

var (
	LedgerTransactionInProgress = enum.New(LedgerTransactionStatus("inprogress"))
	LedgerTransactionSuccess    = enum.New(LedgerTransactionStatus("success"))
	LedgerTransactionFailure    = enum.New(LedgerTransactionStatus("failure"))
)

type LedgerTransaction struct {
	Base

	Signature   string `gorm:"uniqueIndex"`
	Kind        LedgerTransactionKind
	ReferenceID string                  `gorm:"index"`
	Status      LedgerTransactionStatus `gorm:"index"`
}
