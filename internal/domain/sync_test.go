package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newTestSyncDomain(gateway ledger.Gateway, publisher pubsub.Publisher) *syncDomain {
	return NewSyncDomain(
		repository.NewLotteryRepository(),
		repository.NewLedgerTransactionRepository(),
		newTestTicketDomain(gateway, publisher),
		newTestClaimDomain(gateway, publisher),
		gateway,
		publisher,
	)
}

func trackLedgerTx(t *testing.T, ctx context.Context, signature string, kind entity.LedgerTransactionKind, ref string) {
	require.NoError(t, repository.NewLedgerTransactionRepository().Create(ctx, &entity.LedgerTransaction{
		Base:        entity.Base{ID: signature},
		Signature:   signature,
		Kind:        kind,
		ReferenceID: ref,
		Status:      entity.LedgerTransactionInProgress,
	}))
}

func Test_syncDomain_Sync(t *testing.T) {
	ctx := testutil.MockContext()
	publisher := testutil.NewEventRecorder()

	var statusCalls []string
	gateway := &testutil.MockLedgerGateway{
		GetLotteryAccountFunc: func(_ context.Context, onchainID uint64) (*ledger.LotteryAccount, error) {
			switch onchainID {
			case testutil.Lottery1.OnchainID:
				return &ledger.LotteryAccount{LotteryID: onchainID, PrizePool: 0}, nil
			case testutil.Lottery2.OnchainID:
				// One ticket was sold outside of the store.
				return &ledger.LotteryAccount{LotteryID: onchainID, CurrentTickets: 4, PrizePool: 800000000}, nil
			default:
				return nil, ledger.ErrAccountNotFound
			}
		},
		SignatureStatusFunc: func(_ context.Context, signature string) (ledger.TxStatus, error) {
			statusCalls = append(statusCalls, signature)
			switch signature {
			case "pay_sig", "underpaid_sig":
				return ledger.TxStatusConfirmed, nil
			case "memo_sig":
				return ledger.TxStatusFailed, nil
			default:
				return ledger.TxStatusPending, nil
			}
		},
		GetTransfersFunc: func(_ context.Context, signature string) ([]ledger.Transfer, error) {
			switch signature {
			case "pay_sig":
				return []ledger.Transfer{payment(testutil.User2.Wallet, 200000000)}, nil
			case "underpaid_sig":
				return []ledger.Transfer{payment(testutil.User1.Wallet, 100000000)}, nil
			default:
				return nil, ledger.ErrTransactionNotFound
			}
		},
	}
	domain := newTestSyncDomain(gateway, publisher)

	purchaseID := testutil.Lottery2Tickets[1].PurchaseID
	trackLedgerTx(t, ctx, "pay_sig", entity.LedgerTransactionTicketPurchase, purchaseID)
	trackLedgerTx(t, ctx, "memo_sig", entity.LedgerTransactionDrawMemo, testutil.Lottery2.ID)
	trackLedgerTx(t, ctx, "wait_sig", entity.LedgerTransactionTicketPurchase, testutil.Lottery2Tickets[2].PurchaseID)
	trackLedgerTx(t, ctx, "underpaid_sig", entity.LedgerTransactionTicketPurchase, testutil.Lottery2Tickets[0].PurchaseID)
	trackLedgerTx(t, ctx, "claim_sig", entity.LedgerTransactionPrizeClaim, "claim")

	require.NoError(t, domain.Sync(ctx))

	lottery, err := repository.NewLotteryRepository().GetByID(ctx, testutil.Lottery2.ID)
	require.NoError(t, err)
	require.Equal(t, "800000000", lottery.PrizePool.String())

	// Ticket counts are reported, never overwritten.
	require.Equal(t, uint32(3), lottery.CurrentTickets)
	require.False(t, lottery.IsDrawn)

	tickets, err := repository.NewTicketRepository().GetByPurchaseID(ctx, purchaseID)
	require.NoError(t, err)
	require.Equal(t, "pay_sig", tickets[0].TxSignature)

	// The referrer of User2 earns commission on the settled payment.
	affiliate, err := repository.NewAffiliateRepository().GetByID(ctx, testutil.Affiliate1.ID)
	require.NoError(t, err)
	require.Equal(t, "10000000", affiliate.PendingEarnings.String())

	tickets, err = repository.NewTicketRepository().GetByPurchaseID(ctx, testutil.Lottery2Tickets[0].PurchaseID)
	require.NoError(t, err)
	require.Equal(t, entity.PendingTxSignature(testutil.Lottery2Tickets[0].PurchaseID), tickets[0].TxSignature)

	ledgerTxRepo := repository.NewLedgerTransactionRepository()
	expected := map[string]entity.LedgerTransactionStatus{
		"pay_sig":       entity.LedgerTransactionSuccess,
		"underpaid_sig": entity.LedgerTransactionFailure,
		"memo_sig":      entity.LedgerTransactionFailure,
		"wait_sig":      entity.LedgerTransactionInProgress,
		"claim_sig":     entity.LedgerTransactionInProgress,
	}
	for signature, status := range expected {
		ledgerTx, err := ledgerTxRepo.GetBySignature(ctx, signature)
		require.NoError(t, err)
		require.Equal(t, status, ledgerTx.Status, signature)
	}

	// Claim transactions are left to claim reconciliation.
	require.NotContains(t, statusCalls, "claim_sig")
	require.Empty(t, publisher.Events())
}

func Test_syncDomain_Sync_Failure(t *testing.T) {
	ctx := testutil.MockContext()
	publisher := testutil.NewEventRecorder()
	gateway := &testutil.MockLedgerGateway{
		GetLotteryAccountFunc: func(context.Context, uint64) (*ledger.LotteryAccount, error) {
			return nil, errors.New("rpc unavailable")
		},
		SignatureStatusFunc: func(context.Context, string) (ledger.TxStatus, error) {
			return ledger.TxStatusPending, nil
		},
	}

	err := newTestSyncDomain(gateway, publisher).Sync(ctx)
	require.Error(t, err)
	require.Empty(t, publisher.Events())

	cfg := xcontext.Configs(ctx)
	cfg.Solana.AlertOnSyncFailure = true
	ctx = xcontext.WithConfigs(ctx, cfg)

	err = newTestSyncDomain(gateway, publisher).Sync(ctx)
	require.Error(t, err)

	published := publisher.Events()
	require.Len(t, published, 1)
	require.Equal(t, common.TopicLedgerSyncFailed, published[0].Topic)
}
