package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
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

const drawRule = "winning_ticket = uint(randomness) mod ticket_count + 1"

type DrawDomain interface {
	// Draw selects the winner of the lottery from randomness. It has no effect
	// on a lottery drawn before and returns a LotteryClosed error instead.
	Draw(ctx context.Context, lotteryID, requestID string, randomness []byte) (*entity.Draw, error)

	// Announce publishes a committed draw on the ledger and to subscribers.
	// Failures are logged, the draw itself stays valid.
	Announce(ctx context.Context, draw *entity.Draw)

	GetDraws(context.Context, *model.GetDrawsRequest) (*model.GetDrawsResponse, error)
	GetDraw(context.Context, *model.GetDrawRequest) (*model.GetDrawResponse, error)
}

type drawDomain struct {
	lotteryRepo  repository.LotteryRepository
	ticketRepo   repository.TicketRepository
	drawRepo     repository.DrawRepository
	ledgerTxRepo repository.LedgerTransactionRepository
	gateway      ledger.Gateway
	publisher    pubsub.Publisher
}

func NewDrawDomain(
	lotteryRepo repository.LotteryRepository,
	ticketRepo repository.TicketRepository,
	drawRepo repository.DrawRepository,
	ledgerTxRepo repository.LedgerTransactionRepository,
	gateway ledger.Gateway,
	publisher pubsub.Publisher,
) *drawDomain {
	return &drawDomain{
		lotteryRepo:  lotteryRepo,
		ticketRepo:   ticketRepo,
		drawRepo:     drawRepo,
		ledgerTxRepo: ledgerTxRepo,
		gateway:      gateway,
		publisher:    publisher,
	}
}

// ComputeWinningTicket maps randomness, read as a big-endian unsigned integer,
// onto the ticket numbers 1..currentTickets. The reduction is biased by at
// most currentTickets/2^(8*len(randomness)), which is negligible for 32 bytes
// of randomness. currentTickets must be positive.
func ComputeWinningTicket(randomness []byte, currentTickets uint32) uint32 {
	n := new(big.Int).SetBytes(randomness)
	n.Mod(n, new(big.Int).SetUint64(uint64(currentTickets)))
	return uint32(n.Uint64()) + 1
}

type drawMemo struct {
	OnchainID     uint64 `json:"lottery"`
	RequestID     string `json:"request_id"`
	Randomness    string `json:"randomness"`
	TicketCount   uint32 `json:"ticket_count"`
	WinningTicket uint32 `json:"winning_ticket"`
	ProofDigest   string `json:"proof_digest"`
}

type lotteryDrawnEvent struct {
	LotteryID     string `json:"lottery_id"`
	DrawID        string `json:"draw_id"`
	WinningTicket uint32 `json:"winning_ticket"`
	WinnerUserID  string `json:"winner_user_id"`
	PrizeAmount   string `json:"prize_amount"`
	TxSignature   string `json:"tx_signature,omitempty"`
}

func (d *drawDomain) Draw(
	ctx context.Context, lotteryID, requestID string, randomness []byte,
) (*entity.Draw, error) {
	if len(randomness) == 0 {
		return nil, errorx.New(errorx.Validation, "Empty randomness")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	lottery, err := d.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery %s: %v", lotteryID, err)
		return nil, errorx.Unknown
	}

	if lottery.IsDrawn {
		return nil, errorx.New(errorx.LotteryClosed, "Lottery is already drawn")
	}

	if lottery.CurrentTickets == 0 {
		return nil, errorx.New(errorx.Conflict, "Lottery has no ticket")
	}

	winningTicket := ComputeWinningTicket(randomness, lottery.CurrentTickets)
	if err := d.lotteryRepo.MarkDrawn(ctx, lottery.ID, lottery.CurrentTickets, winningTicket); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot mark lottery %s drawn by request %s: %v", lottery.ID, requestID, err)
			return nil, errorx.Unknown
		}

		current, err := d.lotteryRepo.GetByID(ctx, lottery.ID)
		if err == nil && current.IsDrawn {
			return nil, errorx.New(errorx.LotteryClosed, "Lottery is already drawn")
		}

		return nil, errorx.New(errorx.Conflict, "Ticket count changed during the draw")
	}

	ticket, err := d.ticketRepo.GetByNumber(ctx, lottery.ID, winningTicket)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winning ticket %d of lottery %s (request %s): %v",
			winningTicket, lottery.ID, requestID, err)
		return nil, errorx.Unknown
	}

	if err := d.ticketRepo.MarkWinner(ctx, lottery.ID, winningTicket); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark winning ticket %d of lottery %s: %v", winningTicket, lottery.ID, err)
		return nil, errorx.Unknown
	}

	randomnessHex := hexutil.Encode(randomness)
	draw := &entity.Draw{
		Base:        entity.Base{ID: uuid.NewString()},
		LotteryID:   lottery.ID,
		RequestID:   requestID,
		Randomness:  randomnessHex,
		ProofDigest: hexutil.Encode(crypto.Keccak256([]byte(requestID), randomness)),
		Proof: entity.Map{
			"onchain_id":   lottery.OnchainID,
			"request_id":   requestID,
			"randomness":   randomnessHex,
			"ticket_count": lottery.CurrentTickets,
			"rule":         drawRule,
		},
		TicketCount:    lottery.CurrentTickets,
		WinningTicket:  winningTicket,
		WinnerTicketID: ticket.ID,
		WinnerUserID:   ticket.UserID,
		PrizeAmount:    lottery.PrizePool,
		DrawnAt:        time.Now(),
	}
	if err := d.drawRepo.Create(ctx, draw); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create draw of lottery %s (request %s): %v", lottery.ID, requestID, err)
		return nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit draw of lottery %s (request %s): %v", lottery.ID, requestID, err)
		return nil, errorx.Unknown
	}

	xcontext.Logger(ctx).Infof("Lottery %s drawn with ticket %d of %d",
		lottery.ID, winningTicket, lottery.CurrentTickets)
	return draw, nil
}

func (d *drawDomain) Announce(ctx context.Context, draw *entity.Draw) {
	lottery, err := d.lotteryRepo.GetByID(ctx, draw.LotteryID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get lottery %s to announce draw: %v", draw.LotteryID, err)
		return
	}

	common.PromCounters[common.LotteryDrawsTotal].WithLabelValues(string(lottery.Type)).Inc()

	memo, err := json.Marshal(drawMemo{
		OnchainID:     lottery.OnchainID,
		RequestID:     draw.RequestID,
		Randomness:    draw.Randomness,
		TicketCount:   draw.TicketCount,
		WinningTicket: draw.WinningTicket,
		ProofDigest:   draw.ProofDigest,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal draw memo: %v", err)
		return
	}

	signature, err := d.gateway.PublishMemo(ctx, string(memo))
	if err != nil {
		common.PromCounters[common.LedgerTransactionFailure].WithLabelValues("draw_memo").Inc()
		xcontext.Logger(ctx).Warnf("Cannot publish draw memo of lottery %s: %v", lottery.ID, err)
	} else {
		d.recordDrawSignature(ctx, draw, signature)
	}

	publishEvent(ctx, d.publisher, common.TopicLotteryDrawn, lottery.ID, lotteryDrawnEvent{
		LotteryID:     lottery.ID,
		DrawID:        draw.ID,
		WinningTicket: draw.WinningTicket,
		WinnerUserID:  draw.WinnerUserID,
		PrizeAmount:   draw.PrizeAmount.String(),
		TxSignature:   signature,
	})
}

func (d *drawDomain) recordDrawSignature(ctx context.Context, draw *entity.Draw, signature string) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.drawRepo.SetTxSignature(ctx, draw.ID, signature); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set signature %s of draw %s: %v", signature, draw.ID, err)
		return
	}

	if err := d.lotteryRepo.SetDrawTxSignature(ctx, draw.LotteryID, signature); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set draw signature %s of lottery %s: %v", signature, draw.LotteryID, err)
		return
	}

	err := d.ledgerTxRepo.Create(ctx, &entity.LedgerTransaction{
		Base:        entity.Base{ID: uuid.NewString()},
		Signature:   signature,
		Kind:        entity.LedgerTransactionDrawMemo,
		ReferenceID: draw.ID,
		Status:      entity.LedgerTransactionInProgress,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create ledger transaction of draw %s: %v", draw.ID, err)
		return
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit signature of draw %s: %v", draw.ID, err)
		return
	}

	draw.TxSignature.String = signature
	draw.TxSignature.Valid = true
}

func (d *drawDomain) GetDraws(ctx context.Context, req *model.GetDrawsRequest) (*model.GetDrawsResponse, error) {
	draws, err := d.drawRepo.GetList(ctx, req.Offset, common.Limit(ctx, req.Limit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get draws: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.Draw{}
	for i := range draws {
		result = append(result, convertDraw(&draws[i]))
	}

	return &model.GetDrawsResponse{Draws: result}, nil
}

func (d *drawDomain) GetDraw(ctx context.Context, req *model.GetDrawRequest) (*model.GetDrawResponse, error) {
	var draw *entity.Draw
	var err error
	switch {
	case req.ID != "":
		draw, err = d.drawRepo.GetByID(ctx, req.ID)
	case req.LotteryID != "":
		draw, err = d.drawRepo.GetByLotteryID(ctx, req.LotteryID)
	default:
		return nil, errorx.New(errorx.BadRequest, "Require either id or lottery id")
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetDrawResponse{Draw: convertDraw(draw)}, nil
}
