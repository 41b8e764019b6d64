package domain

import (
	"context"

	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/shopspring/decimal"
)

func newTestTicketDomain(gateway ledger.Gateway, publisher pubsub.Publisher) *ticketDomain {
	return NewTicketDomain(
		repository.NewLotteryRepository(),
		repository.NewTicketRepository(),
		repository.NewAffiliateRepository(),
		repository.NewUserRepository(),
		repository.NewLedgerTransactionRepository(),
		newTestMissionDomain(),
		gateway,
		publisher,
	)
}

func newTestMissionDomain() *missionDomain {
	return NewMissionDomain(
		repository.NewUserMissionRepository(),
		repository.NewUserRepository(),
		repository.NewClaimRepository(),
	)
}

// paymentGateway settles purchases paid by transfers, keyed by signature.
// Signatures without transfers are reported as still pending.
func paymentGateway(transfers map[string][]ledger.Transfer) *testutil.MockLedgerGateway {
	return &testutil.MockLedgerGateway{
		ConfirmFunc: func(_ context.Context, signature string) (bool, error) {
			_, ok := transfers[signature]
			return ok, nil
		},
		SignatureStatusFunc: func(_ context.Context, signature string) (ledger.TxStatus, error) {
			if _, ok := transfers[signature]; ok {
				return ledger.TxStatusConfirmed, nil
			}
			return ledger.TxStatusPending, nil
		},
		GetTransfersFunc: func(_ context.Context, signature string) ([]ledger.Transfer, error) {
			result, ok := transfers[signature]
			if !ok {
				return nil, ledger.ErrTransactionNotFound
			}
			return result, nil
		},
	}
}

// payment is a transfer of amount lamports from wallet to the treasury.
func payment(wallet string, amount int64) ledger.Transfer {
	return ledger.Transfer{From: wallet, To: testutil.MockTreasury, Amount: decimal.NewFromInt(amount)}
}

func newTestDrawDomain(gateway ledger.Gateway, publisher pubsub.Publisher) *drawDomain {
	return NewDrawDomain(
		repository.NewLotteryRepository(),
		repository.NewTicketRepository(),
		repository.NewDrawRepository(),
		repository.NewLedgerTransactionRepository(),
		gateway,
		publisher,
	)
}

func newTestClaimDomain(gateway ledger.Gateway, publisher pubsub.Publisher) *claimDomain {
	return NewClaimDomain(
		repository.NewClaimRepository(),
		repository.NewTicketRepository(),
		repository.NewLotteryRepository(),
		repository.NewDrawRepository(),
		repository.NewAffiliateRepository(),
		repository.NewUserRepository(),
		repository.NewLedgerTransactionRepository(),
		gateway,
		publisher,
	)
}
