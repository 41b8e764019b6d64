package testutil

import (
	"context"
	"errors"

	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

const MockTreasury = "7LVmF5vz2yNeTUc775VuTbyT2hQNfEFQvAfg7Dy2DiAZ"

var errNotImplemented = errors.New("not implemented")

type MockLedgerGateway struct {
	GetLotteryAccountFunc func(ctx context.Context, onchainID uint64) (*ledger.LotteryAccount, error)
	BuildTransferFunc     func(ctx context.Context, from, to string, amount decimal.Decimal) (*ledger.UnsignedTransfer, error)
	VerifyTransferFunc    func(signedTx, payer string, amount decimal.Decimal) (string, error)
	GetTransfersFunc      func(ctx context.Context, signature string) ([]ledger.Transfer, error)
	BroadcastFunc         func(ctx context.Context, signedTx string) (string, error)
	ConfirmFunc           func(ctx context.Context, signature string) (bool, error)
	SignatureStatusFunc   func(ctx context.Context, signature string) (ledger.TxStatus, error)
	BlockHeightFunc       func(ctx context.Context) (uint64, error)
	PublishMemoFunc       func(ctx context.Context, data string) (string, error)
}

func (m *MockLedgerGateway) Treasury() string {
	return MockTreasury
}

func (m *MockLedgerGateway) GetLotteryAccount(ctx context.Context, onchainID uint64) (*ledger.LotteryAccount, error) {
	if m.GetLotteryAccountFunc != nil {
		return m.GetLotteryAccountFunc(ctx, onchainID)
	}

	return nil, errNotImplemented
}

func (m *MockLedgerGateway) BuildTransfer(
	ctx context.Context, from, to string, amount decimal.Decimal,
) (*ledger.UnsignedTransfer, error) {
	if m.BuildTransferFunc != nil {
		return m.BuildTransferFunc(ctx, from, to, amount)
	}

	return nil, errNotImplemented
}

func (m *MockLedgerGateway) VerifyTransfer(signedTx, payer string, amount decimal.Decimal) (string, error) {
	if m.VerifyTransferFunc != nil {
		return m.VerifyTransferFunc(signedTx, payer, amount)
	}

	return "", errNotImplemented
}

func (m *MockLedgerGateway) GetTransfers(ctx context.Context, signature string) ([]ledger.Transfer, error) {
	if m.GetTransfersFunc != nil {
		return m.GetTransfersFunc(ctx, signature)
	}

	return nil, errNotImplemented
}

func (m *MockLedgerGateway) Broadcast(ctx context.Context, signedTx string) (string, error) {
	if m.BroadcastFunc != nil {
		return m.BroadcastFunc(ctx, signedTx)
	}

	return "", errNotImplemented
}

func (m *MockLedgerGateway) Confirm(ctx context.Context, signature string) (bool, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, signature)
	}

	return false, errNotImplemented
}

func (m *MockLedgerGateway) SignatureStatus(ctx context.Context, signature string) (ledger.TxStatus, error) {
	if m.SignatureStatusFunc != nil {
		return m.SignatureStatusFunc(ctx, signature)
	}

	return ledger.TxStatusUnknown, errNotImplemented
}

func (m *MockLedgerGateway) BlockHeight(ctx context.Context) (uint64, error) {
	if m.BlockHeightFunc != nil {
		return m.BlockHeightFunc(ctx)
	}

	return 0, errNotImplemented
}

func (m *MockLedgerGateway) PublishMemo(ctx context.Context, data string) (string, error) {
	if m.PublishMemoFunc != nil {
		return m.PublishMemoFunc(ctx, data)
	}

	return "", errNotImplemented
}
