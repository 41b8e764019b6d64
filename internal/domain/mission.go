package domain

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

type MissionDomain interface {
	GetMissions(context.Context, *model.GetMissionsRequest) (*model.GetMissionsResponse, error)
	GetMyMissions(context.Context, *model.GetMyMissionsRequest) (*model.GetMyMissionsResponse, error)
	CompleteMission(context.Context, *model.CompleteMissionRequest) (*model.CompleteMissionResponse, error)

	// RecordPurchase credits the power points of a paid purchase and counts it
	// towards the ticket missions of the buyer. It must be called once per
	// purchase, inside the transaction settling it.
	RecordPurchase(ctx context.Context, userID string, lotteryType entity.LotteryType, quantity int) error

	// RecordReferrals updates the referral missions of an affiliate user.
	RecordReferrals(ctx context.Context, userID string, validated int64) error
}

type missionDomain struct {
	missionRepo repository.UserMissionRepository
	userRepo    repository.UserRepository
	claimRepo   repository.ClaimRepository
}

func NewMissionDomain(
	missionRepo repository.UserMissionRepository,
	userRepo repository.UserRepository,
	claimRepo repository.ClaimRepository,
) *missionDomain {
	return &missionDomain{
		missionRepo: missionRepo,
		userRepo:    userRepo,
		claimRepo:   claimRepo,
	}
}

type mission struct {
	config.MissionPreset

	missionType entity.MissionType
	goal        entity.MissionGoal
	reward      decimal.Decimal
}

// missionCatalogue parses the configured missions. Invalid presets are
// skipped.
func missionCatalogue(ctx context.Context) []mission {
	result := []mission{}
	for _, preset := range xcontext.Configs(ctx).Mission.Missions {
		missionType, err := enum.ToEnum[entity.MissionType](preset.Type)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Invalid type %s of mission %s", preset.Type, preset.Key)
			continue
		}

		goal, err := enum.ToEnum[entity.MissionGoal](preset.Goal)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Invalid goal %s of mission %s", preset.Goal, preset.Key)
			continue
		}

		reward := decimal.Zero
		if preset.Reward != "" {
			if reward, err = decimal.NewFromString(preset.Reward); err != nil {
				xcontext.Logger(ctx).Errorf("Invalid reward %s of mission %s", preset.Reward, preset.Key)
				continue
			}
		}

		result = append(result, mission{
			MissionPreset: preset,
			missionType:   missionType,
			goal:          goal,
			reward:        reward,
		})
	}

	return result
}

func (d *missionDomain) GetMissions(
	ctx context.Context, req *model.GetMissionsRequest,
) (*model.GetMissionsResponse, error) {
	result := []model.Mission{}
	for _, m := range missionCatalogue(ctx) {
		result = append(result, convertMission(m, nil, time.Now()))
	}

	return &model.GetMissionsResponse{Missions: result}, nil
}

func (d *missionDomain) GetMyMissions(
	ctx context.Context, req *model.GetMyMissionsRequest,
) (*model.GetMyMissionsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	progresses, err := d.missionRepo.GetByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get missions of user: %v", err)
		return nil, errorx.Unknown
	}

	byKey := map[string]*entity.UserMission{}
	for i := range progresses {
		byKey[progresses[i].MissionKey] = &progresses[i]
	}

	now := time.Now()
	result := []model.Mission{}
	for _, m := range missionCatalogue(ctx) {
		result = append(result, convertMission(m, byKey[m.Key], now))
	}

	return &model.GetMyMissionsResponse{Missions: result, PowerPoints: user.PowerPoints}, nil
}

// CompleteMission completes a mission that has nothing to count, like a daily
// login.
func (d *missionDomain) CompleteMission(
	ctx context.Context, req *model.CompleteMissionRequest,
) (*model.CompleteMissionResponse, error) {
	var found *mission
	for _, m := range missionCatalogue(ctx) {
		if m.Key == req.MissionKey {
			found = &m
			break
		}
	}

	if found == nil {
		return nil, errorx.New(errorx.NotFound, "Not found mission")
	}

	if found.goal != entity.MissionGoalManual {
		return nil, errorx.New(errorx.Validation, "Mission is completed by the activity it counts")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	now := time.Now()
	userMission, completed, err := d.advance(ctx, xcontext.RequestUserID(ctx), *found, now,
		func(um *entity.UserMission) { um.Progress = found.Target })
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot complete mission %s: %v", found.Key, err)
		return nil, errorx.Unknown
	}

	if !completed {
		return nil, errorx.New(errorx.Conflict, "Mission is already completed")
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit mission completion: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CompleteMissionResponse{Mission: convertMission(*found, userMission, now)}, nil
}

func (d *missionDomain) RecordPurchase(
	ctx context.Context, userID string, lotteryType entity.LotteryType, quantity int,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	points := xcontext.Configs(ctx).Mission.TicketPowerPoints[string(lotteryType)] * quantity
	if points > 0 {
		if err := d.userRepo.AddPowerPoints(ctx, userID, int64(points)); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, m := range missionCatalogue(ctx) {
		var update func(*entity.UserMission)
		switch m.goal {
		case entity.MissionGoalTickets:
			update = func(um *entity.UserMission) { um.Progress += quantity }

		case entity.MissionGoalLotteryTypes:
			update = func(um *entity.UserMission) {
				var types []string
				if um.LotteryTypes != "" {
					types = strings.Split(um.LotteryTypes, ",")
				}

				if !slices.Contains(types, string(lotteryType)) {
					types = append(types, string(lotteryType))
				}

				um.LotteryTypes = strings.Join(types, ",")
				um.Progress = len(types)
			}

		default:
			continue
		}

		if _, _, err := d.advance(ctx, userID, m, now, update); err != nil {
			return err
		}
	}

	return xcontext.WithCommitDBTransaction(ctx)
}

func (d *missionDomain) RecordReferrals(ctx context.Context, userID string, validated int64) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	now := time.Now()
	for _, m := range missionCatalogue(ctx) {
		if m.goal != entity.MissionGoalReferrals {
			continue
		}

		_, _, err := d.advance(ctx, userID, m, now, func(um *entity.UserMission) {
			um.Progress = int(validated)
		})
		if err != nil {
			return err
		}
	}

	return xcontext.WithCommitDBTransaction(ctx)
}

// advance applies update to the progress of the user in the current window of
// m, and completes the mission when its target is reached. It reports whether
// this call completed it. A completed mission ignores progress until its
// window ends.
func (d *missionDomain) advance(
	ctx context.Context, userID string, m mission, now time.Time, update func(*entity.UserMission),
) (*entity.UserMission, bool, error) {
	err := d.missionRepo.CreateIfNotExists(ctx, &entity.UserMission{
		Base:        entity.Base{ID: uuid.NewString()},
		UserID:      userID,
		MissionKey:  m.Key,
		WindowStart: now,
	})
	if err != nil {
		return nil, false, err
	}

	userMission, err := d.missionRepo.GetForUpdate(ctx, userID, m.Key)
	if err != nil {
		return nil, false, err
	}

	if userMission.WindowEnded(m.missionType, now) {
		userMission.Progress = 0
		userMission.LotteryTypes = ""
		userMission.Completed = false
		userMission.CompletedAt = sql.NullTime{}
		userMission.WindowStart = now
	} else if userMission.Completed {
		return userMission, false, nil
	}

	update(userMission)

	completed := false
	if userMission.Progress >= m.Target {
		if err := d.complete(ctx, userMission, m, now); err != nil {
			return nil, false, err
		}
		completed = true
	}

	if err := d.missionRepo.Update(ctx, userMission); err != nil {
		return nil, false, err
	}

	return userMission, completed, nil
}

// complete credits the power points of m and opens a mission claim for its
// reward, settled like the other claims.
func (d *missionDomain) complete(ctx context.Context, userMission *entity.UserMission, m mission, now time.Time) error {
	userMission.Completed = true
	userMission.CompletedAt = sql.NullTime{Time: now, Valid: true}

	if m.PowerPoints > 0 {
		if err := d.userRepo.AddPowerPoints(ctx, userMission.UserID, int64(m.PowerPoints)); err != nil {
			return err
		}
	}

	if m.reward.IsPositive() {
		claim := &entity.Claim{
			Base:   entity.Base{ID: uuid.NewString()},
			UserID: userMission.UserID,
			Amount: m.reward,
			Type:   entity.ClaimMission,
			State:  entity.ClaimCreated,
		}
		if err := d.claimRepo.Create(ctx, claim); err != nil {
			return err
		}

		userMission.ClaimID = sql.NullString{String: claim.ID, Valid: true}
	}

	xcontext.Logger(ctx).Infof("User %s completed mission %s", userMission.UserID, m.Key)
	return nil
}

// convertMission shows the progress of userMission as of now. A periodic
// mission whose window ended is shown as not started.
func convertMission(m mission, userMission *entity.UserMission, now time.Time) model.Mission {
	result := model.Mission{
		Key:         m.Key,
		Type:        string(m.missionType),
		Name:        m.Name,
		Description: m.Description,
		Target:      m.Target,
		PowerPoints: m.PowerPoints,
	}
	if m.reward.IsPositive() {
		result.Reward = m.reward.String()
	}

	if userMission == nil {
		return result
	}

	result.ClaimID = userMission.ClaimID.String
	if userMission.WindowEnded(m.missionType, now) {
		return result
	}

	result.Progress = userMission.Progress
	result.Completed = userMission.Completed
	result.CompletedAt = formatNullTime(userMission.CompletedAt)
	return result
}
