package ledger

import (
	"context"
	"errors"

	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/shopspring/decimal"
)

type TxStatus string

var (
	TxStatusUnknown   = enum.New(TxStatus("unknown"))
	TxStatusPending   = enum.New(TxStatus("pending"))
	TxStatusConfirmed = enum.New(TxStatus("confirmed"))
	TxStatusFailed    = enum.New(TxStatus("failed"))
)

// UnsignedTransfer is a transfer ready to be signed by its fee payer. The
// transaction is base64 encoded and already carries the treasury signature.
type UnsignedTransfer struct {
	Transaction          string
	Blockhash            string
	LastValidBlockHeight uint64
}

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionFailed   = errors.New("transaction failed")
)

// Transfer is a system transfer of lamports carried by a transaction.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Gateway is the only writer of on-chain transactions. Off-chain bookkeeping
// is never read from it, only the state the ledger owns.
type Gateway interface {
	// Treasury returns the address paying prizes and commissions.
	Treasury() string

	GetLotteryAccount(ctx context.Context, onchainID uint64) (*LotteryAccount, error)

	// BuildTransfer moves amount lamports from the treasury to the recipient,
	// who pays the fee and signs last.
	BuildTransfer(ctx context.Context, from, to string, amount decimal.Decimal) (*UnsignedTransfer, error)

	// VerifyTransfer checks that signedTx is fully signed, paid by payer and
	// moves exactly amount to the payer. It returns the transaction signature.
	VerifyTransfer(signedTx, payer string, amount decimal.Decimal) (string, error)

	// GetTransfers returns the system transfers of a confirmed transaction. It
	// returns ErrTransactionNotFound while the ledger has not confirmed the
	// transaction and ErrTransactionFailed when it failed on-chain.
	GetTransfers(ctx context.Context, signature string) ([]Transfer, error)

	Broadcast(ctx context.Context, signedTx string) (string, error)
	Confirm(ctx context.Context, signature string) (bool, error)
	SignatureStatus(ctx context.Context, signature string) (TxStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)

	// PublishMemo writes data on-chain in a memo transaction paid by the
	// treasury and returns its signature.
	PublishMemo(ctx context.Context, data string) (string, error)
}
