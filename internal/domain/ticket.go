package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketDomain interface {
	// Allocate reserves quantity contiguous ticket numbers of the lottery and
	// returns the first one.
	Allocate(ctx context.Context, lotteryID string, quantity uint32) (uint32, error)

	Purchase(context.Context, *model.PurchaseTicketsRequest) (*model.PurchaseTicketsResponse, error)
	ConfirmPurchase(context.Context, *model.ConfirmPurchaseRequest) (*model.ConfirmPurchaseResponse, error)

	// SettlePurchase checks the confirmed transaction signature against the
	// purchase and marks its tickets paid. The transaction must move the
	// purchase price from the buyer wallet to the treasury, otherwise its ledger
	// transaction fails and a Validation error is returned.
	SettlePurchase(ctx context.Context, purchaseID, signature string) error

	GetMyTickets(context.Context, *model.GetMyTicketsRequest) (*model.GetMyTicketsResponse, error)
	GetLotteryTickets(context.Context, *model.GetLotteryTicketsRequest) (*model.GetLotteryTicketsResponse, error)
}

type ticketDomain struct {
	lotteryRepo   repository.LotteryRepository
	ticketRepo    repository.TicketRepository
	affiliateRepo repository.AffiliateRepository
	userRepo      repository.UserRepository
	ledgerTxRepo  repository.LedgerTransactionRepository
	missionDomain MissionDomain
	gateway       ledger.Gateway
	publisher     pubsub.Publisher
}

func NewTicketDomain(
	lotteryRepo repository.LotteryRepository,
	ticketRepo repository.TicketRepository,
	affiliateRepo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	ledgerTxRepo repository.LedgerTransactionRepository,
	missionDomain MissionDomain,
	gateway ledger.Gateway,
	publisher pubsub.Publisher,
) *ticketDomain {
	return &ticketDomain{
		lotteryRepo:   lotteryRepo,
		ticketRepo:    ticketRepo,
		affiliateRepo: affiliateRepo,
		userRepo:      userRepo,
		ledgerTxRepo:  ledgerTxRepo,
		missionDomain: missionDomain,
		gateway:       gateway,
		publisher:     publisher,
	}
}

type ticketPurchasedEvent struct {
	LotteryID   string `json:"lottery_id"`
	PurchaseID  string `json:"purchase_id"`
	UserID      string `json:"user_id"`
	FirstTicket uint32 `json:"first_ticket"`
	LastTicket  uint32 `json:"last_ticket"`
	TotalPrice  string `json:"total_price"`
}

func (d *ticketDomain) Allocate(ctx context.Context, lotteryID string, quantity uint32) (uint32, error) {
	if quantity == 0 {
		return 0, errorx.New(errorx.Validation, "Quantity must be positive")
	}

	first, err := d.lotteryRepo.AllocateTickets(ctx, lotteryID, quantity)
	if err == nil {
		return first, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot allocate %d tickets of lottery %s: %v", quantity, lotteryID, err)
		return 0, errorx.Unknown
	}

	// The guarded increment did not match, find out which precondition failed.
	lottery, err := d.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery: %v", err)
		return 0, errorx.Unknown
	}

	if lottery.IsDrawn {
		return 0, errorx.New(errorx.LotteryClosed, "Lottery is already drawn")
	}

	return 0, errorx.New(errorx.CapacityExceeded, "Only %d tickets left",
		lottery.MaxTickets-lottery.CurrentTickets)
}

func (d *ticketDomain) Purchase(
	ctx context.Context, req *model.PurchaseTicketsRequest,
) (*model.PurchaseTicketsResponse, error) {
	maxPerPurchase := xcontext.Configs(ctx).Lottery.MaxTicketsPerPurchase
	if req.Quantity < 1 || req.Quantity > maxPerPurchase {
		return nil, errorx.New(errorx.Validation, "Quantity must be between 1 and %d", maxPerPurchase)
	}

	if req.LotteryID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty lottery id")
	}

	userID := xcontext.RequestUserID(ctx)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	lottery, err := d.lotteryRepo.GetByID(ctx, req.LotteryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery: %v", err)
		return nil, errorx.Unknown
	}

	if lottery.IsDrawn || !time.Now().Before(lottery.DrawTimestamp) {
		return nil, errorx.New(errorx.LotteryClosed, "Lottery is closed for purchases")
	}

	quantity := uint32(req.Quantity)
	first, err := d.Allocate(ctx, lottery.ID, quantity)
	if err != nil {
		return nil, err
	}

	purchaseID := uuid.NewString()
	tickets := make([]entity.Ticket, 0, quantity)
	for i := uint32(0); i < quantity; i++ {
		tickets = append(tickets, entity.Ticket{
			Base:          entity.Base{ID: uuid.NewString()},
			UserID:        userID,
			LotteryID:     lottery.ID,
			TicketNumber:  first + i,
			PurchaseID:    purchaseID,
			PurchasePrice: lottery.TicketPrice,
			TxSignature:   entity.PendingTxSignature(purchaseID),
		})
	}

	if err := d.ticketRepo.CreateMany(ctx, tickets); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create tickets %d-%d of lottery %s: %v",
			first, first+quantity-1, lottery.ID, err)
		return nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit purchase of lottery %s: %v", lottery.ID, err)
		return nil, errorx.Unknown
	}

	totalPrice := lottery.TicketPrice.Mul(decimal.NewFromInt(int64(quantity)))
	common.PromCounters[common.TicketsAllocatedTotal].WithLabelValues(string(lottery.Type)).Add(float64(quantity))

	last := first + quantity - 1
	publishEvent(ctx, d.publisher, common.TopicTicketPurchased, lottery.ID, ticketPurchasedEvent{
		LotteryID:   lottery.ID,
		PurchaseID:  purchaseID,
		UserID:      userID,
		FirstTicket: first,
		LastTicket:  last,
		TotalPrice:  totalPrice.String(),
	})

	return &model.PurchaseTicketsResponse{
		PurchaseID:  purchaseID,
		FirstTicket: first,
		LastTicket:  last,
		TotalPrice:  totalPrice.String(),
		Treasury:    d.gateway.Treasury(),
		Tickets:     convertTickets(tickets),
	}, nil
}

// ConfirmPurchase attaches the payment transaction to the tickets of a
// purchase once the ledger confirms it and the payment matches the purchase.
// Payments still pending are tracked and settled later by the ledger sync.
func (d *ticketDomain) ConfirmPurchase(
	ctx context.Context, req *model.ConfirmPurchaseRequest,
) (*model.ConfirmPurchaseResponse, error) {
	if req.PurchaseID == "" || req.TxSignature == "" {
		return nil, errorx.New(errorx.BadRequest, "Purchase id and transaction signature are required")
	}

	tickets, err := d.ticketRepo.GetByPurchaseID(ctx, req.PurchaseID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tickets of purchase: %v", err)
		return nil, errorx.Unknown
	}

	if len(tickets) == 0 {
		return nil, errorx.New(errorx.NotFound, "Not found purchase")
	}

	if tickets[0].UserID != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.PermissionDenied, "Purchase does not belong to user")
	}

	if tickets[0].TxSignature != entity.PendingTxSignature(req.PurchaseID) {
		if tickets[0].TxSignature == req.TxSignature {
			return &model.ConfirmPurchaseResponse{Confirmed: true}, nil
		}

		return nil, errorx.New(errorx.Conflict, "Purchase is already confirmed by another transaction")
	}

	ledgerTx, err := d.ledgerTxRepo.GetBySignature(ctx, req.TxSignature)
	switch {
	case err == nil:
		if ledgerTx.Kind != entity.LedgerTransactionTicketPurchase || ledgerTx.ReferenceID != req.PurchaseID {
			return nil, errorx.New(errorx.Conflict, "Transaction is already used")
		}

		if ledgerTx.Status == entity.LedgerTransactionFailure {
			return nil, errorx.New(errorx.Validation, "Transaction was rejected as payment of the purchase")
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		err := d.ledgerTxRepo.Create(ctx, &entity.LedgerTransaction{
			Base:        entity.Base{ID: uuid.NewString()},
			Signature:   req.TxSignature,
			Kind:        entity.LedgerTransactionTicketPurchase,
			ReferenceID: req.PurchaseID,
			Status:      entity.LedgerTransactionInProgress,
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create ledger transaction: %v", err)
			return nil, errorx.Unknown
		}

	default:
		xcontext.Logger(ctx).Errorf("Cannot get ledger transaction: %v", err)
		return nil, errorx.Unknown
	}

	confirmed, err := d.gateway.Confirm(ctx, req.TxSignature)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot confirm purchase transaction %s: %v", req.TxSignature, err)
		return nil, errorx.New(errorx.Ledger, "Cannot confirm transaction on the ledger")
	}

	if !confirmed {
		return &model.ConfirmPurchaseResponse{Confirmed: false}, nil
	}

	if err := d.settlePurchase(ctx, tickets, req.TxSignature); err != nil {
		return nil, err
	}

	return &model.ConfirmPurchaseResponse{Confirmed: true}, nil
}

func (d *ticketDomain) SettlePurchase(ctx context.Context, purchaseID, signature string) error {
	tickets, err := d.ticketRepo.GetByPurchaseID(ctx, purchaseID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tickets of purchase: %v", err)
		return errorx.Unknown
	}

	if len(tickets) == 0 {
		return errorx.New(errorx.NotFound, "Not found purchase")
	}

	return d.settlePurchase(ctx, tickets, signature)
}

func (d *ticketDomain) settlePurchase(ctx context.Context, tickets []entity.Ticket, signature string) error {
	purchaseID := tickets[0].PurchaseID
	buyer, err := d.userRepo.GetByID(ctx, tickets[0].UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get buyer of purchase %s: %v", purchaseID, err)
		return errorx.Unknown
	}

	price := decimal.Zero
	for i := range tickets {
		price = price.Add(tickets[i].PurchasePrice)
	}

	transfers, err := d.gateway.GetTransfers(ctx, signature)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionFailed) {
			d.rejectPayment(ctx, purchaseID, signature)
			return errorx.New(errorx.Validation, "Payment transaction failed on the ledger")
		}

		xcontext.Logger(ctx).Warnf("Cannot get payment transaction %s: %v", signature, err)
		return errorx.New(errorx.Ledger, "Cannot get transaction from the ledger")
	}

	paid := decimal.Zero
	for _, transfer := range transfers {
		if transfer.From == buyer.Wallet && transfer.To == d.gateway.Treasury() {
			paid = paid.Add(transfer.Amount)
		}
	}

	if !paid.Equal(price) {
		d.rejectPayment(ctx, purchaseID, signature)
		return errorx.New(errorx.Validation,
			"Transaction pays %s lamports from the buyer to the treasury, expected %s", paid, price)
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	err = d.ticketRepo.ConfirmPurchase(ctx, purchaseID, signature)
	switch {
	case err == nil:
		// Commission and mission progress are owed once per paid purchase.
		referrer, err := accrueCommission(ctx, d.affiliateRepo, buyer.ID, len(tickets), price)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot accrue affiliate commission of purchase %s: %v", purchaseID, err)
			return errorx.Unknown
		}

		if err := d.recordMissions(ctx, buyer.ID, tickets, referrer); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot record missions of purchase %s: %v", purchaseID, err)
			return errorx.Unknown
		}

	case !errors.Is(err, gorm.ErrRecordNotFound):
		xcontext.Logger(ctx).Errorf("Cannot confirm tickets of purchase %s: %v", purchaseID, err)
		return errorx.Unknown
	}

	err = d.ledgerTxRepo.UpdateStatus(ctx, signature, entity.LedgerTransactionSuccess)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot update ledger transaction %s: %v", signature, err)
		return errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit settlement of purchase %s: %v", purchaseID, err)
		return errorx.Unknown
	}

	return nil
}

func (d *ticketDomain) recordMissions(
	ctx context.Context, buyerID string, tickets []entity.Ticket, referrer *entity.Affiliate,
) error {
	lottery, err := d.lotteryRepo.GetByID(ctx, tickets[0].LotteryID)
	if err != nil {
		return err
	}

	if err := d.missionDomain.RecordPurchase(ctx, buyerID, lottery.Type, len(tickets)); err != nil {
		return err
	}

	if referrer == nil {
		return nil
	}

	validated, err := d.affiliateRepo.CountValidatedReferrals(ctx, referrer.ID)
	if err != nil {
		return err
	}

	return d.missionDomain.RecordReferrals(ctx, referrer.UserID, validated)
}

func (d *ticketDomain) rejectPayment(ctx context.Context, purchaseID, signature string) {
	xcontext.Logger(ctx).Warnf("Transaction %s does not pay purchase %s", signature, purchaseID)
	err := d.ledgerTxRepo.UpdateStatus(ctx, signature, entity.LedgerTransactionFailure)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot fail ledger transaction %s: %v", signature, err)
	}
}

func (d *ticketDomain) GetMyTickets(
	ctx context.Context, req *model.GetMyTicketsRequest,
) (*model.GetMyTicketsResponse, error) {
	tickets, err := d.ticketRepo.GetByUserID(
		ctx, xcontext.RequestUserID(ctx), req.Offset, common.Limit(ctx, req.Limit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tickets of user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetMyTicketsResponse{Tickets: convertTickets(tickets)}, nil
}

func (d *ticketDomain) GetLotteryTickets(
	ctx context.Context, req *model.GetLotteryTicketsRequest,
) (*model.GetLotteryTicketsResponse, error) {
	if _, err := d.lotteryRepo.GetByID(ctx, req.LotteryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery: %v", err)
		return nil, errorx.Unknown
	}

	tickets, err := d.ticketRepo.GetByLotteryID(ctx, req.LotteryID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tickets of lottery: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetLotteryTicketsResponse{Tickets: convertTickets(tickets)}, nil
}

func convertTickets(tickets []entity.Ticket) []model.Ticket {
	result := []model.Ticket{}
	for i := range tickets {
		result = append(result, convertTicket(&tickets[i]))
	}

	return result
}
