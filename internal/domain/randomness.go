package domain

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/powersol-lab/backend/internal/client"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/idutil"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RandomnessDomain interface {
	// RequestRandomness asks the oracle for the randomness of a lottery which
	// reached its draw condition. It fails with a Conflict error while another
	// request of the lottery is pending.
	RequestRandomness(ctx context.Context, lotteryID string) (string, error)

	// ProcessCallback draws the lottery of a pending request. Unknown, resolved
	// or stale requests are acknowledged without any effect.
	ProcessCallback(context.Context, *model.RandomnessWebhookRequest) (*model.RandomnessWebhookResponse, error)
}

type randomnessDomain struct {
	lotteryRepo    repository.LotteryRepository
	randomnessRepo repository.RandomnessRequestRepository
	oracle         client.RandomnessOracle
	drawDomain     DrawDomain
}

func NewRandomnessDomain(
	lotteryRepo repository.LotteryRepository,
	randomnessRepo repository.RandomnessRequestRepository,
	oracle client.RandomnessOracle,
	drawDomain DrawDomain,
) *randomnessDomain {
	return &randomnessDomain{
		lotteryRepo:    lotteryRepo,
		randomnessRepo: randomnessRepo,
		oracle:         oracle,
		drawDomain:     drawDomain,
	}
}

func (d *randomnessDomain) RequestRandomness(ctx context.Context, lotteryID string) (string, error) {
	lottery, err := d.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errorx.New(errorx.NotFound, "Not found lottery")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lottery: %v", err)
		return "", errorx.Unknown
	}

	now := time.Now()
	if lottery.IsDrawn {
		return "", errorx.New(errorx.LotteryClosed, "Lottery is already drawn")
	}

	if lottery.DrawTimestamp.After(now) {
		return "", errorx.New(errorx.Validation, "Lottery has not reached its draw time")
	}

	if lottery.CurrentTickets == 0 {
		return "", errorx.New(errorx.Validation, "Lottery has no ticket")
	}

	requestID := idutil.RandomnessRequestID(lottery.OnchainID)
	seed := randomnessSeed(lottery.ID, lottery.CurrentTickets, requestID)
	timeout := xcontext.Configs(ctx).Randomness.RequestTimeout

	if err := d.createRequest(ctx, lottery.ID, requestID, seed, now, now.Add(-timeout)); err != nil {
		return "", err
	}

	if err := d.oracle.Request(ctx, requestID, seed); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot request randomness %s of lottery %s: %v", requestID, lottery.ID, err)

		if err := d.randomnessRepo.Resolve(ctx, requestID, entity.RandomnessRequestFailed, time.Now()); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot fail randomness request %s: %v", requestID, err)
		}

		if err := d.lotteryRepo.ReleaseRandomnessLease(ctx, lottery.ID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot release randomness lease of lottery %s: %v", lottery.ID, err)
		}

		return "", errorx.New(errorx.External, "Cannot request randomness")
	}

	xcontext.Logger(ctx).Infof("Requested randomness %s for lottery %s with %d tickets",
		requestID, lottery.ID, lottery.CurrentTickets)
	return requestID, nil
}

// createRequest takes the randomness lease of the lottery and records the
// pending request. Requests left pending by an expired lease are abandoned.
func (d *randomnessDomain) createRequest(
	ctx context.Context, lotteryID, requestID, seed string, now, staleBefore time.Time,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.lotteryRepo.AcquireRandomnessLease(ctx, lotteryID, now, staleBefore); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.Conflict, "Randomness of lottery is already requested")
		}

		xcontext.Logger(ctx).Errorf("Cannot acquire randomness lease of lottery %s: %v", lotteryID, err)
		return errorx.Unknown
	}

	abandoned, err := d.randomnessRepo.AbandonPending(ctx, lotteryID, now)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot abandon pending randomness requests of lottery %s: %v", lotteryID, err)
		return errorx.Unknown
	}

	if abandoned > 0 {
		xcontext.Logger(ctx).Warnf("Abandoned %d timed out randomness requests of lottery %s", abandoned, lotteryID)
	}

	err = d.randomnessRepo.Create(ctx, &entity.RandomnessRequest{
		Base:        entity.Base{ID: uuid.NewString()},
		LotteryID:   lotteryID,
		RequestID:   requestID,
		Seed:        seed,
		Status:      entity.RandomnessRequestPending,
		RequestedAt: now,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create randomness request %s: %v", requestID, err)
		return errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit randomness request %s: %v", requestID, err)
		return errorx.Unknown
	}

	return nil
}

func (d *randomnessDomain) ProcessCallback(
	ctx context.Context, req *model.RandomnessWebhookRequest,
) (*model.RandomnessWebhookResponse, error) {
	callback, randomness, err := parseRandomnessCallback(req)
	if err != nil {
		return nil, err
	}

	received := &model.RandomnessWebhookResponse{Received: true}
	now := time.Now()

	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	request, err := d.randomnessRepo.GetByRequestID(txCtx, callback.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Debugf("Ignore callback of unknown randomness request %s", callback.RequestID)
			return received, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get randomness request %s: %v", callback.RequestID, err)
		return nil, errorx.Unknown
	}

	if request.Status != entity.RandomnessRequestPending {
		xcontext.Logger(ctx).Debugf("Ignore callback of %s randomness request %s", request.Status, request.RequestID)
		return received, nil
	}

	err = d.randomnessRepo.Resolve(txCtx, request.RequestID, entity.RandomnessRequestFulfilled, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Debugf("Randomness request %s is resolved concurrently", request.RequestID)
			return received, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot resolve randomness request %s: %v", request.RequestID, err)
		return nil, errorx.Unknown
	}

	draw, err := d.drawDomain.Draw(txCtx, request.LotteryID, request.RequestID, randomness)
	if err != nil {
		if !errorx.HasCode(err, errorx.NotFound) &&
			!errorx.HasCode(err, errorx.LotteryClosed) &&
			!errorx.HasCode(err, errorx.Conflict) {
			return nil, err
		}

		xcontext.WithRollbackDBTransaction(txCtx)
		xcontext.Logger(ctx).Warnf("Stale randomness callback %s of lottery %s: %v",
			request.RequestID, request.LotteryID, err)
		d.failRequest(ctx, request)
		return received, nil
	}

	if err := xcontext.WithCommitDBTransaction(txCtx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit draw of randomness request %s: %v", request.RequestID, err)
		return nil, errorx.Unknown
	}

	d.drawDomain.Announce(ctx, draw)
	return received, nil
}

// failRequest closes a request which cannot draw its lottery, so the next
// sweep may ask again if the lottery is still open.
func (d *randomnessDomain) failRequest(ctx context.Context, request *entity.RandomnessRequest) {
	err := d.randomnessRepo.Resolve(ctx, request.RequestID, entity.RandomnessRequestFailed, time.Now())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot fail randomness request %s: %v", request.RequestID, err)
	}

	if err := d.lotteryRepo.ReleaseRandomnessLease(ctx, request.LotteryID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot release randomness lease of lottery %s: %v", request.LotteryID, err)
	}
}

func parseRandomnessCallback(req *model.RandomnessWebhookRequest) (*model.RandomnessCallback, []byte, error) {
	if req == nil || len(*req) == 0 {
		return nil, nil, errorx.New(errorx.Validation, "Empty callback body")
	}

	var callback model.RandomnessCallback
	if err := mapstructure.Decode(map[string]any(*req), &callback); err != nil {
		return nil, nil, errorx.New(errorx.Validation, "Invalid callback body: %v", err)
	}

	if callback.RequestID == "" {
		return nil, nil, errorx.New(errorx.Validation, "Missing requestId")
	}

	if callback.Randomness == "" {
		return nil, nil, errorx.New(errorx.Validation, "Missing randomness")
	}

	randomness, err := decodeRandomness(callback.Randomness)
	if err != nil {
		return nil, nil, errorx.New(errorx.Validation, "Invalid randomness: %v", err)
	}

	return &callback, randomness, nil
}

// decodeRandomness accepts hex with or without the 0x prefix.
func decodeRandomness(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}

	if len(b) == 0 {
		return nil, errors.New("empty randomness")
	}

	return b, nil
}

// randomnessSeed commits the request to the lottery state it was made for.
func randomnessSeed(lotteryID string, currentTickets uint32, requestID string) string {
	tickets := make([]byte, 4)
	binary.BigEndian.PutUint32(tickets, currentTickets)
	return hexutil.Encode(crypto.Keccak256([]byte(lotteryID), tickets, []byte(requestID)))
}
