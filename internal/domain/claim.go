package domain

import (
	"context"
	"database/sql"
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
	"gorm.io/gorm"
)

const reconcileBatchSize = 100

type ClaimDomain interface {
	// CreateClaim returns the prize claim of a winning ticket, creating it on
	// first use. A ticket has at most one claim.
	CreateClaim(ctx context.Context, userID, ticketID string) (*entity.Claim, error)

	Prepare(context.Context, *model.PrepareClaimRequest) (*model.PrepareClaimResponse, error)
	Submit(context.Context, *model.SubmitClaimRequest) (*model.SubmitClaimResponse, error)
	Status(context.Context, *model.GetClaimStatusRequest) (*model.GetClaimStatusResponse, error)
	GetMyClaims(context.Context, *model.GetMyClaimsRequest) (*model.GetMyClaimsResponse, error)
	ClaimAffiliateEarnings(
		context.Context, *model.ClaimAffiliateEarningsRequest) (*model.ClaimAffiliateEarningsResponse, error)

	// Reconcile settles submitted claims against the ledger.
	Reconcile(ctx context.Context) error
}

type claimDomain struct {
	claimRepo     repository.ClaimRepository
	ticketRepo    repository.TicketRepository
	lotteryRepo   repository.LotteryRepository
	drawRepo      repository.DrawRepository
	affiliateRepo repository.AffiliateRepository
	userRepo      repository.UserRepository
	ledgerTxRepo  repository.LedgerTransactionRepository
	gateway       ledger.Gateway
	publisher     pubsub.Publisher
}

func NewClaimDomain(
	claimRepo repository.ClaimRepository,
	ticketRepo repository.TicketRepository,
	lotteryRepo repository.LotteryRepository,
	drawRepo repository.DrawRepository,
	affiliateRepo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	ledgerTxRepo repository.LedgerTransactionRepository,
	gateway ledger.Gateway,
	publisher pubsub.Publisher,
) *claimDomain {
	return &claimDomain{
		claimRepo:     claimRepo,
		ticketRepo:    ticketRepo,
		lotteryRepo:   lotteryRepo,
		drawRepo:      drawRepo,
		affiliateRepo: affiliateRepo,
		userRepo:      userRepo,
		ledgerTxRepo:  ledgerTxRepo,
		gateway:       gateway,
		publisher:     publisher,
	}
}

type claimSettledEvent struct {
	ClaimID     string `json:"claim_id"`
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	TxSignature string `json:"tx_signature"`
}

func (d *claimDomain) CreateClaim(ctx context.Context, userID, ticketID string) (*entity.Claim, error) {
	ticket, err := d.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found ticket")
		}

		xcontext.Logger(ctx).Errorf("Cannot get ticket: %v", err)
		return nil, errorx.Unknown
	}

	if ticket.UserID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Ticket does not belong to user")
	}

	lottery, err := d.lotteryRepo.GetByID(ctx, ticket.LotteryID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get lottery of ticket: %v", err)
		return nil, errorx.Unknown
	}

	if !lottery.IsDrawn || !ticket.IsWinner {
		return nil, errorx.New(errorx.Validation, "Ticket is not a winning ticket")
	}

	if ticket.TxSignature == entity.PendingTxSignature(ticket.PurchaseID) {
		return nil, errorx.New(errorx.Validation, "Ticket purchase is not paid")
	}

	claim, err := d.claimRepo.GetByTicketID(ctx, ticket.ID)
	if err == nil {
		return claim, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get claim of ticket: %v", err)
		return nil, errorx.Unknown
	}

	draw, err := d.drawRepo.GetByLotteryID(ctx, lottery.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get draw of lottery %s: %v", lottery.ID, err)
		return nil, errorx.Unknown
	}

	claim = &entity.Claim{
		Base:      entity.Base{ID: uuid.NewString()},
		UserID:    userID,
		TicketID:  sql.NullString{String: ticket.ID, Valid: true},
		LotteryID: sql.NullString{String: lottery.ID, Valid: true},
		Amount:    draw.PrizeAmount,
		Type:      entity.ClaimPrize,
		State:     entity.ClaimCreated,
	}
	if err := d.claimRepo.Create(ctx, claim); err != nil {
		// The ticket claim may have been created by a concurrent request.
		if existing, getErr := d.claimRepo.GetByTicketID(ctx, ticket.ID); getErr == nil {
			return existing, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot create claim of ticket %s: %v", ticket.ID, err)
		return nil, errorx.Unknown
	}

	return claim, nil
}

func (d *claimDomain) Prepare(
	ctx context.Context, req *model.PrepareClaimRequest,
) (*model.PrepareClaimResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	var claim *entity.Claim
	var err error
	switch {
	case req.ClaimID != "":
		claim, err = d.getUserClaim(ctx, userID, req.ClaimID)
	case req.TicketID != "":
		claim, err = d.CreateClaim(ctx, userID, req.TicketID)
	default:
		return nil, errorx.New(errorx.BadRequest, "Require either claim id or ticket id")
	}
	if err != nil {
		return nil, err
	}

	if claim.IsClaimed {
		return nil, errorx.New(errorx.AlreadyClaimed, "Claim is already claimed")
	}

	if claim.State == entity.ClaimSubmitted {
		return nil, errorx.New(errorx.Conflict, "Claim has a transaction in flight")
	}

	if !claim.Amount.IsPositive() {
		return nil, errorx.New(errorx.Validation, "Nothing to claim")
	}

	user, err := d.userRepo.GetByID(ctx, claim.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get claimant: %v", err)
		return nil, errorx.Unknown
	}

	transfer, err := d.gateway.BuildTransfer(ctx, d.gateway.Treasury(), user.Wallet, claim.Amount)
	if err != nil {
		common.PromCounters[common.LedgerTransactionFailure].WithLabelValues("build_transfer").Inc()
		xcontext.Logger(ctx).Warnf("Cannot build transfer of claim %s: %v", claim.ID, err)
		return nil, errorx.New(errorx.Ledger, "Cannot build the claim transaction")
	}

	err = d.claimRepo.Prepare(ctx, claim.ID, transfer.Blockhash, transfer.LastValidBlockHeight, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Claim was submitted concurrently")
		}

		xcontext.Logger(ctx).Errorf("Cannot prepare claim %s: %v", claim.ID, err)
		return nil, errorx.Unknown
	}

	return &model.PrepareClaimResponse{
		ClaimID:              claim.ID,
		UnsignedTx:           transfer.Transaction,
		Blockhash:            transfer.Blockhash,
		LastValidBlockHeight: transfer.LastValidBlockHeight,
	}, nil
}

// Submit broadcasts the claimant-signed transfer. The submit lease lets one
// caller per claim reach the ledger, and marking the claim claimed after the
// broadcast is accepted is what prevents a second payout.
func (d *claimDomain) Submit(
	ctx context.Context, req *model.SubmitClaimRequest,
) (*model.SubmitClaimResponse, error) {
	if req.SignedTx == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty signed transaction")
	}

	claim, err := d.getUserClaim(ctx, xcontext.RequestUserID(ctx), req.ClaimID)
	if err != nil {
		return nil, err
	}

	if claim.IsClaimed || claim.State == entity.ClaimSubmitted {
		return nil, errorx.New(errorx.AlreadyClaimed, "Claim is already submitted")
	}

	if claim.State == entity.ClaimCreated {
		return nil, errorx.New(errorx.Validation, "Claim must be prepared first")
	}

	user, err := d.userRepo.GetByID(ctx, claim.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get claimant: %v", err)
		return nil, errorx.Unknown
	}

	signature, err := d.gateway.VerifyTransfer(req.SignedTx, user.Wallet, claim.Amount)
	if err != nil {
		return nil, errorx.New(errorx.Validation, "Invalid signed transaction: %v", err)
	}

	if err := d.claimRepo.LeaseSubmit(ctx, claim.ID, signature); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.AlreadyClaimed, "Claim is already submitted")
		}

		xcontext.Logger(ctx).Errorf("Cannot lease claim %s: %v", claim.ID, err)
		return nil, errorx.Unknown
	}

	d.trackLedgerTransaction(ctx, signature, claimLedgerKind(claim.Type), claim.ID)

	if _, err := d.gateway.Broadcast(ctx, req.SignedTx); err != nil {
		if accepted := d.acceptedDespiteError(ctx, claim, signature, err); !accepted {
			return nil, errorx.New(errorx.Ledger, "Cannot broadcast the claim transaction")
		}
	}

	if err := d.claimRepo.MarkClaimed(ctx, claim.ID, signature, time.Now()); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark claim %s claimed by broadcast transaction %s: %v",
			claim.ID, signature, err)
		return nil, errorx.Unknown
	}

	d.settled(ctx, claim, signature)

	confirmed, err := d.gateway.Confirm(ctx, signature)
	if err != nil {
		common.PromCounters[common.LedgerTransactionFailure].WithLabelValues("confirm").Inc()
		xcontext.Logger(ctx).Errorf("Claim %s is claimed but its transaction %s is not confirmed: %v",
			claim.ID, signature, err)
		return nil, errorx.New(errorx.Ledger, "Claim transaction failed on the ledger")
	}

	if confirmed {
		d.markConfirmed(ctx, claim.ID, signature)
	}

	return &model.SubmitClaimResponse{Signature: signature, Confirmed: confirmed}, nil
}

// acceptedDespiteError decides what a failed broadcast means. A transaction
// the ledger knows about counts as accepted. A rejected one gives the lease
// back. When the ledger cannot be asked, the lease is kept and left to
// Reconcile, since the transaction might still land.
func (d *claimDomain) acceptedDespiteError(
	ctx context.Context, claim *entity.Claim, signature string, broadcastErr error,
) bool {
	status, err := d.gateway.SignatureStatus(ctx, signature)
	if err != nil {
		common.PromCounters[common.LedgerTransactionFailure].WithLabelValues("broadcast").Inc()
		xcontext.Logger(ctx).Warnf("Cannot broadcast claim %s (%v) nor get its status: %v",
			claim.ID, broadcastErr, err)
		return false
	}

	if status == ledger.TxStatusPending || status == ledger.TxStatusConfirmed {
		xcontext.Logger(ctx).Warnf("Broadcast of claim %s failed but the ledger has transaction %s: %v",
			claim.ID, signature, broadcastErr)
		return true
	}

	common.PromCounters[common.LedgerTransactionFailure].WithLabelValues("broadcast").Inc()
	xcontext.Logger(ctx).Warnf("Cannot broadcast transaction %s of claim %s: %v", signature, claim.ID, broadcastErr)
	d.revertSubmit(ctx, claim.ID, signature)
	return false
}

func (d *claimDomain) Status(
	ctx context.Context, req *model.GetClaimStatusRequest,
) (*model.GetClaimStatusResponse, error) {
	claim, err := d.getUserClaim(ctx, xcontext.RequestUserID(ctx), req.ClaimID)
	if err != nil {
		return nil, err
	}

	return &model.GetClaimStatusResponse{Claim: convertClaim(claim)}, nil
}

func (d *claimDomain) GetMyClaims(
	ctx context.Context, req *model.GetMyClaimsRequest,
) (*model.GetMyClaimsResponse, error) {
	claims, err := d.claimRepo.GetByUserID(
		ctx, xcontext.RequestUserID(ctx), req.Offset, common.Limit(ctx, req.Limit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get claims of user: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.Claim{}
	for i := range claims {
		result = append(result, convertClaim(&claims[i]))
	}

	return &model.GetMyClaimsResponse{Claims: result}, nil
}

// ClaimAffiliateEarnings moves all pending commission of the user into a new
// affiliate claim, settled like prize claims.
func (d *claimDomain) ClaimAffiliateEarnings(
	ctx context.Context, req *model.ClaimAffiliateEarningsRequest,
) (*model.ClaimAffiliateEarningsResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	affiliate, err := d.affiliateRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "User is not an affiliate")
		}

		xcontext.Logger(ctx).Errorf("Cannot get affiliate: %v", err)
		return nil, errorx.Unknown
	}

	amount := affiliate.PendingEarnings
	if !amount.IsPositive() {
		return nil, errorx.New(errorx.Validation, "No pending earnings")
	}

	if err := d.affiliateRepo.WithdrawPendingEarnings(ctx, affiliate.ID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Pending earnings changed, try again")
		}

		xcontext.Logger(ctx).Errorf("Cannot withdraw pending earnings: %v", err)
		return nil, errorx.Unknown
	}

	claim := &entity.Claim{
		Base:   entity.Base{ID: uuid.NewString()},
		UserID: userID,
		Amount: amount,
		Type:   entity.ClaimAffiliate,
		State:  entity.ClaimCreated,
	}
	if err := d.claimRepo.Create(ctx, claim); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create affiliate claim: %v", err)
		return nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit affiliate claim: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ClaimAffiliateEarningsResponse{ClaimID: claim.ID, Amount: amount.String()}, nil
}

func (d *claimDomain) Reconcile(ctx context.Context) error {
	claims, err := d.claimRepo.GetSubmitted(ctx, reconcileBatchSize)
	if err != nil {
		return err
	}

	var height uint64
	for i := range claims {
		claim := &claims[i]
		signature := claim.TxSignature.String

		status, err := d.gateway.SignatureStatus(ctx, signature)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get status of claim %s transaction %s: %v", claim.ID, signature, err)
			continue
		}

		switch status {
		case ledger.TxStatusConfirmed:
			if !claim.IsClaimed {
				if err := d.claimRepo.MarkClaimed(ctx, claim.ID, signature, time.Now()); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot mark claim %s claimed: %v", claim.ID, err)
					continue
				}

				d.settled(ctx, claim, signature)
			}

			d.markConfirmed(ctx, claim.ID, signature)

		case ledger.TxStatusFailed:
			if claim.IsClaimed {
				xcontext.Logger(ctx).Errorf(
					"Claim %s is claimed but transaction %s failed on the ledger, it needs a manual settlement",
					claim.ID, signature)
				continue
			}

			d.revertSubmit(ctx, claim.ID, signature)

		case ledger.TxStatusUnknown:
			if height == 0 {
				if height, err = d.gateway.BlockHeight(ctx); err != nil {
					xcontext.Logger(ctx).Warnf("Cannot get block height: %v", err)
					return nil
				}
			}

			if height <= claim.PreparedLastValidHeight {
				continue
			}

			if claim.IsClaimed {
				xcontext.Logger(ctx).Errorf(
					"Claim %s is claimed but transaction %s expired unseen, it needs a manual settlement",
					claim.ID, signature)
				continue
			}

			xcontext.Logger(ctx).Infof("Transaction %s of claim %s expired, the claim can be prepared again",
				signature, claim.ID)
			d.revertSubmit(ctx, claim.ID, signature)
		}
	}

	return nil
}

func (d *claimDomain) getUserClaim(ctx context.Context, userID, claimID string) (*entity.Claim, error) {
	if claimID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty claim id")
	}

	claim, err := d.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found claim")
		}

		xcontext.Logger(ctx).Errorf("Cannot get claim: %v", err)
		return nil, errorx.Unknown
	}

	if claim.UserID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Claim does not belong to user")
	}

	return claim, nil
}

func (d *claimDomain) trackLedgerTransaction(
	ctx context.Context, signature string, kind entity.LedgerTransactionKind, referenceID string,
) {
	_, err := d.ledgerTxRepo.GetBySignature(ctx, signature)
	if err == nil {
		err = d.ledgerTxRepo.UpdateStatus(ctx, signature, entity.LedgerTransactionInProgress)
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		err = d.ledgerTxRepo.Create(ctx, &entity.LedgerTransaction{
			Base:        entity.Base{ID: uuid.NewString()},
			Signature:   signature,
			Kind:        kind,
			ReferenceID: referenceID,
			Status:      entity.LedgerTransactionInProgress,
		})
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot track ledger transaction %s: %v", signature, err)
	}
}

func (d *claimDomain) revertSubmit(ctx context.Context, claimID, signature string) {
	if err := d.claimRepo.RevertSubmit(ctx, claimID, signature); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot revert submission %s of claim %s: %v", signature, claimID, err)
		return
	}

	err := d.ledgerTxRepo.UpdateStatus(ctx, signature, entity.LedgerTransactionFailure)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update ledger transaction %s: %v", signature, err)
	}
}

func (d *claimDomain) markConfirmed(ctx context.Context, claimID, signature string) {
	err := d.claimRepo.MarkConfirmed(ctx, claimID, time.Now())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot mark claim %s confirmed: %v", claimID, err)
		return
	}

	err = d.ledgerTxRepo.UpdateStatus(ctx, signature, entity.LedgerTransactionSuccess)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update ledger transaction %s: %v", signature, err)
	}
}

func (d *claimDomain) settled(ctx context.Context, claim *entity.Claim, signature string) {
	common.PromCounters[common.ClaimsSettledTotal].WithLabelValues(string(claim.Type)).Inc()
	publishEvent(ctx, d.publisher, common.TopicClaimSettled, claim.ID, claimSettledEvent{
		ClaimID:     claim.ID,
		UserID:      claim.UserID,
		Type:        string(claim.Type),
		Amount:      claim.Amount.String(),
		TxSignature: signature,
	})
}

func claimLedgerKind(claimType entity.ClaimType) entity.LedgerTransactionKind {
	switch claimType {
	case entity.ClaimAffiliate:
		return entity.LedgerTransactionAffiliateClaim
	case entity.ClaimMission:
		return entity.LedgerTransactionMissionClaim
	default:
		return entity.LedgerTransactionPrizeClaim
	}
}
