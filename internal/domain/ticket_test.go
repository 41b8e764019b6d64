package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/testutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func Test_ticketDomain_Allocate_Concurrent(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestTicketDomain(&testutil.MockLedgerGateway{}, testutil.NewEventRecorder())

	type grant struct{ first, quantity uint32 }

	var mu sync.Mutex
	var grants []grant
	var errs []error
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		quantity := uint32(i%5 + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := domain.Allocate(ctx, testutil.Lottery1.ID, quantity)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}

			grants = append(grants, grant{first: first, quantity: quantity})
		}()
	}
	wg.Wait()

	// 120 tickets were asked for a cap of 100.
	require.NotEmpty(t, errs)
	for _, err := range errs {
		require.ErrorIs(t, err, errorx.New(errorx.CapacityExceeded, ""))
	}

	sort.Slice(grants, func(i, j int) bool { return grants[i].first < grants[j].first })

	var total uint32
	next := uint32(1)
	for _, g := range grants {
		// Ranges are contiguous from 1 and never overlap.
		require.Equal(t, next, g.first)
		next += g.quantity
		total += g.quantity
	}

	lottery, err := repository.NewLotteryRepository().GetByID(ctx, testutil.Lottery1.ID)
	require.NoError(t, err)
	require.Equal(t, total, lottery.CurrentTickets)
	require.LessOrEqual(t, lottery.CurrentTickets, lottery.MaxTickets)
}

func Test_ticketDomain_Allocate_Boundary(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestTicketDomain(&testutil.MockLedgerGateway{}, testutil.NewEventRecorder())

	first, err := domain.Allocate(ctx, testutil.Lottery1.ID, 98)
	require.NoError(t, err)
	require.Equal(t, uint32(1), first)

	// 98 + 3 is one above the cap.
	_, err = domain.Allocate(ctx, testutil.Lottery1.ID, 3)
	require.ErrorIs(t, err, errorx.New(errorx.CapacityExceeded, ""))

	// 98 + 2 is exactly the cap.
	first, err = domain.Allocate(ctx, testutil.Lottery1.ID, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(99), first)

	_, err = domain.Allocate(ctx, testutil.Lottery1.ID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.CapacityExceeded, ""))

	_, err = domain.Allocate(ctx, "not_exist", 1)
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	_, err = domain.Allocate(ctx, testutil.Lottery1.ID, 0)
	require.ErrorIs(t, err, errorx.New(errorx.Validation, ""))

	lottery, _ := testutil.CreateDrawnLottery(ctx, "drawn", 90, testutil.User1.ID, decimal.NewFromInt(1))
	_, err = domain.Allocate(ctx, lottery.ID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.LotteryClosed, ""))
}

func Test_ticketDomain_Purchase(t *testing.T) {
	ctx := testutil.MockContext()
	publisher := testutil.NewEventRecorder()
	domain := newTestTicketDomain(&testutil.MockLedgerGateway{}, publisher)

	// User2 was referred by the first affiliate, which earns tier 1 commission.
	ctxUser2 := xcontext.WithRequestUserID(ctx, testutil.User2.ID)
	resp, err := domain.Purchase(ctxUser2, &model.PurchaseTicketsRequest{
		LotteryID: testutil.Lottery1.ID,
		Quantity:  3,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), resp.FirstTicket)
	require.Equal(t, uint32(3), resp.LastTicket)
	require.Equal(t, "300000000", resp.TotalPrice)
	require.Equal(t, testutil.MockTreasury, resp.Treasury)
	require.Len(t, resp.Tickets, 3)
	for _, ticket := range resp.Tickets {
		require.Equal(t, resp.PurchaseID, ticket.PurchaseID)
		require.Equal(t, entity.PendingTxSignature(resp.PurchaseID), ticket.TxSignature)
	}

	// Commission waits for the payment.
	affiliate, err := repository.NewAffiliateRepository().GetByID(ctx, testutil.Affiliate1.ID)
	require.NoError(t, err)
	require.True(t, affiliate.PendingEarnings.IsZero())

	published := publisher.Events()
	require.Len(t, published, 1)
	require.Equal(t, common.TopicTicketPurchased, published[0].Topic)

	// User3 has no referrer.
	ctxUser3 := xcontext.WithRequestUserID(ctx, testutil.User3.ID)
	resp, err = domain.Purchase(ctxUser3, &model.PurchaseTicketsRequest{
		LotteryID: testutil.Lottery1.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(4), resp.FirstTicket)
	require.Equal(t, uint32(5), resp.LastTicket)

	myTickets, err := domain.GetMyTickets(ctxUser3, &model.GetMyTicketsRequest{})
	require.NoError(t, err)
	require.Len(t, myTickets.Tickets, 2)

	lotteryTickets, err := domain.GetLotteryTickets(ctx, &model.GetLotteryTicketsRequest{
		LotteryID: testutil.Lottery1.ID,
	})
	require.NoError(t, err)
	require.Len(t, lotteryTickets.Tickets, 5)
}

func Test_ticketDomain_Purchase_Invalid(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newTestTicketDomain(&testutil.MockLedgerGateway{}, testutil.NewEventRecorder())
	ctxUser1 := xcontext.WithRequestUserID(ctx, testutil.User1.ID)

	testCases := []struct {
		name string
		req  *model.PurchaseTicketsRequest
		want errorx.Code
	}{
		{
			name: "zero quantity",
			req:  &model.PurchaseTicketsRequest{LotteryID: testutil.Lottery1.ID, Quantity: 0},
			want: errorx.Validation,
		},
		{
			name: "quantity above the purchase limit",
			req:  &model.PurchaseTicketsRequest{LotteryID: testutil.Lottery1.ID, Quantity: 101},
			want: errorx.Validation,
		},
		{
			name: "unknown lottery",
			req:  &model.PurchaseTicketsRequest{LotteryID: "not_exist", Quantity: 1},
			want: errorx.NotFound,
		},
		{
			name: "past draw deadline",
			req:  &model.PurchaseTicketsRequest{LotteryID: testutil.Lottery2.ID, Quantity: 1},
			want: errorx.LotteryClosed,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.Purchase(ctxUser1, tt.req)
			require.ErrorIs(t, err, errorx.New(tt.want, ""))
		})
	}

	lottery, err := repository.NewLotteryRepository().GetByID(ctx, testutil.Lottery1.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(0), lottery.CurrentTickets)
}

func Test_ticketDomain_ConfirmPurchase(t *testing.T) {
	ctx := testutil.MockContext()
	gateway := paymentGateway(map[string][]ledger.Transfer{
		"paid_sig": {payment(testutil.User1.Wallet, 200000000)},
	})
	domain := newTestTicketDomain(gateway, testutil.NewEventRecorder())

	purchaseID := testutil.Lottery2Tickets[0].PurchaseID
	ctxUser1 := xcontext.WithRequestUserID(ctx, testutil.User1.ID)
	ctxUser2 := xcontext.WithRequestUserID(ctx, testutil.User2.ID)

	_, err := domain.ConfirmPurchase(ctxUser2, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "paid_sig",
	})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))

	resp, err := domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "paid_sig",
	})
	require.NoError(t, err)
	require.True(t, resp.Confirmed)

	tickets, err := repository.NewTicketRepository().GetByPurchaseID(ctx, purchaseID)
	require.NoError(t, err)
	require.Equal(t, "paid_sig", tickets[0].TxSignature)

	ledgerTx, err := repository.NewLedgerTransactionRepository().GetBySignature(ctx, "paid_sig")
	require.NoError(t, err)
	require.Equal(t, entity.LedgerTransactionSuccess, ledgerTx.Status)

	// Confirming again with the same signature is fine, another one is not.
	resp, err = domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "paid_sig",
	})
	require.NoError(t, err)
	require.True(t, resp.Confirmed)

	_, err = domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "other_sig",
	})
	require.ErrorIs(t, err, errorx.New(errorx.Conflict, ""))

	// A signature cannot pay for two purchases.
	_, err = domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  testutil.Lottery2Tickets[2].PurchaseID,
		TxSignature: "paid_sig",
	})
	require.ErrorIs(t, err, errorx.New(errorx.Conflict, ""))

	// Payments not confirmed yet stay tracked.
	resp, err = domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  testutil.Lottery2Tickets[2].PurchaseID,
		TxSignature: "slow_sig",
	})
	require.NoError(t, err)
	require.False(t, resp.Confirmed)

	ledgerTx, err = repository.NewLedgerTransactionRepository().GetBySignature(ctx, "slow_sig")
	require.NoError(t, err)
	require.Equal(t, entity.LedgerTransactionInProgress, ledgerTx.Status)
	require.Equal(t, testutil.Lottery2Tickets[2].PurchaseID, ledgerTx.ReferenceID)
}

func Test_ticketDomain_ConfirmPurchase_WrongPayment(t *testing.T) {
	ctx := testutil.MockContext()
	gateway := paymentGateway(map[string][]ledger.Transfer{
		// One lamport instead of the ticket price.
		"short_sig": {payment(testutil.User1.Wallet, 1)},
		// The full price, sent to another wallet.
		"elsewhere_sig": {{
			From:   testutil.User1.Wallet,
			To:     testutil.User3.Wallet,
			Amount: decimal.NewFromInt(200000000),
		}},
		// The full price, paid by someone else.
		"stranger_sig": {payment(testutil.User2.Wallet, 200000000)},
		"failed_sig":   nil,
		// Unrelated transfers of the same transaction are ignored.
		"paid_sig": {
			payment(testutil.User1.Wallet, 150000000),
			{From: testutil.User1.Wallet, To: testutil.User3.Wallet, Amount: decimal.NewFromInt(5)},
			payment(testutil.User1.Wallet, 50000000),
		},
	})
	getTransfers := gateway.GetTransfersFunc
	gateway.GetTransfersFunc = func(ctx context.Context, signature string) ([]ledger.Transfer, error) {
		if signature == "failed_sig" {
			return nil, ledger.ErrTransactionFailed
		}
		return getTransfers(ctx, signature)
	}
	domain := newTestTicketDomain(gateway, testutil.NewEventRecorder())

	purchaseID := testutil.Lottery2Tickets[0].PurchaseID
	ctxUser1 := xcontext.WithRequestUserID(ctx, testutil.User1.ID)
	ticketRepo := repository.NewTicketRepository()
	ledgerTxRepo := repository.NewLedgerTransactionRepository()

	for _, signature := range []string{"short_sig", "elsewhere_sig", "stranger_sig", "failed_sig"} {
		_, err := domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
			PurchaseID:  purchaseID,
			TxSignature: signature,
		})
		require.ErrorIs(t, err, errorx.New(errorx.Validation, ""), signature)

		ledgerTx, err := ledgerTxRepo.GetBySignature(ctx, signature)
		require.NoError(t, err)
		require.Equal(t, entity.LedgerTransactionFailure, ledgerTx.Status, signature)

		tickets, err := ticketRepo.GetByPurchaseID(ctx, purchaseID)
		require.NoError(t, err)
		require.Equal(t, entity.PendingTxSignature(purchaseID), tickets[0].TxSignature, signature)
	}

	// A rejected transaction stays rejected.
	_, err := domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "short_sig",
	})
	require.ErrorIs(t, err, errorx.New(errorx.Validation, ""))

	// Unpaid tickets earn nothing.
	buyer, err := repository.NewUserRepository().GetByID(ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.Zero(t, buyer.PowerPoints)

	resp, err := domain.ConfirmPurchase(ctxUser1, &model.ConfirmPurchaseRequest{
		PurchaseID:  purchaseID,
		TxSignature: "paid_sig",
	})
	require.NoError(t, err)
	require.True(t, resp.Confirmed)
}

func Test_ticketDomain_ConfirmPurchase_Commission(t *testing.T) {
	ctx := testutil.MockContext()
	// A refused event never undoes the purchase.
	publisher := &testutil.EventRecorder{Err: errors.New("broker is down")}
	gateway := paymentGateway(map[string][]ledger.Transfer{
		"paid_sig": {payment(testutil.User2.Wallet, 300000000)},
	})
	domain := newTestTicketDomain(gateway, publisher)
	affiliateRepo := repository.NewAffiliateRepository()

	// User2 was referred by the first affiliate, which earns tier 1 commission.
	ctxUser2 := xcontext.WithRequestUserID(ctx, testutil.User2.ID)
	purchase, err := domain.Purchase(ctxUser2, &model.PurchaseTicketsRequest{
		LotteryID: testutil.Lottery1.ID,
		Quantity:  3,
	})
	require.NoError(t, err)

	referral, err := affiliateRepo.GetReferralByReferredUserID(ctx, testutil.User2.ID)
	require.NoError(t, err)
	require.False(t, referral.IsValidated)

	for i := 0; i < 2; i++ {
		resp, err := domain.ConfirmPurchase(ctxUser2, &model.ConfirmPurchaseRequest{
			PurchaseID:  purchase.PurchaseID,
			TxSignature: "paid_sig",
		})
		require.NoError(t, err)
		require.True(t, resp.Confirmed)
	}

	// Commission accrues once.
	affiliate, err := affiliateRepo.GetByID(ctx, testutil.Affiliate1.ID)
	require.NoError(t, err)
	require.Equal(t, "15000000", affiliate.PendingEarnings.String())

	referral, err = affiliateRepo.GetReferralByReferredUserID(ctx, testutil.User2.ID)
	require.NoError(t, err)
	require.True(t, referral.IsValidated)
	require.Equal(t, 3, referral.TotalTicketsPurchased)

	// So do the missions of the buyer and of the affiliate.
	buyerMissions, points := myMissions(t, ctx, testutil.User2.ID)
	require.Equal(t, int64(3*10+25), points)
	require.True(t, buyerMissions["daily_buy_ticket"].Completed)
	require.Equal(t, 3, buyerMissions["activity_buy_10_tickets"].Progress)

	affiliateMissions, _ := myMissions(t, ctx, testutil.User1.ID)
	require.Equal(t, 1, affiliateMissions["social_invite_3"].Progress)
}
