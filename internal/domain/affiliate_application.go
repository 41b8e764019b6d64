package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/pkg/enum"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// ApplyAffiliate records the application of the requesting user to the
// affiliate program. A user applies once.
func (d *affiliateDomain) ApplyAffiliate(
	ctx context.Context, req *model.ApplyAffiliateRequest,
) (*model.ApplyAffiliateResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.MarketingStrategy = strings.TrimSpace(req.MarketingStrategy)
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return nil, errorx.New(errorx.Validation, "Invalid application: %v", err)
	}

	userID := xcontext.RequestUserID(ctx)
	_, err := d.applicationRepo.GetByUserID(ctx, userID)
	if err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "Application is already submitted")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get application of user: %v", err)
		return nil, errorx.Unknown
	}

	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get applicant: %v", err)
		return nil, errorx.Unknown
	}

	application := &entity.AffiliateApplication{
		Base:                entity.Base{ID: uuid.NewString()},
		UserID:              userID,
		Wallet:              user.Wallet,
		FullName:            req.FullName,
		Email:               req.Email,
		Country:             strings.TrimSpace(req.Country),
		SocialMedia:         req.SocialMedia,
		MarketingExperience: req.MarketingExperience,
		MarketingStrategy:   req.MarketingStrategy,
		Status:              entity.AffiliateApplicationPending,
	}
	if err := d.applicationRepo.Create(ctx, application); err != nil {
		// A concurrent request of the same user won.
		if _, getErr := d.applicationRepo.GetByUserID(ctx, userID); getErr == nil {
			return nil, errorx.New(errorx.AlreadyExists, "Application is already submitted")
		}

		xcontext.Logger(ctx).Errorf("Cannot create affiliate application: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ApplyAffiliateResponse{Application: convertAffiliateApplication(application)}, nil
}

func (d *affiliateDomain) GetMyApplication(
	ctx context.Context, req *model.GetMyAffiliateApplicationRequest,
) (*model.GetMyAffiliateApplicationResponse, error) {
	application, err := d.applicationRepo.GetByUserID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application of user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetMyAffiliateApplicationResponse{Application: convertAffiliateApplication(application)}, nil
}

func (d *affiliateDomain) GetApplications(
	ctx context.Context, req *model.GetAffiliateApplicationsRequest,
) (*model.GetAffiliateApplicationsResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	var status entity.AffiliateApplicationStatus
	if req.Status != "" {
		var err error
		if status, err = enum.ToEnum[entity.AffiliateApplicationStatus](req.Status); err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid application status %s", req.Status)
		}
	}

	applications, total, err := d.applicationRepo.GetList(
		ctx, status, req.Offset, auditLimit(req.Limit, defaultTierHistoryLimit))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get affiliate applications: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.AffiliateApplication{}
	for i := range applications {
		result = append(result, convertAffiliateApplication(&applications[i]))
	}

	return &model.GetAffiliateApplicationsResponse{Applications: result, Total: total}, nil
}

// ReviewApplication approves or rejects a pending application. Approval makes
// the applicant an affiliate.
func (d *affiliateDomain) ReviewApplication(
	ctx context.Context, req *model.ReviewAffiliateApplicationRequest,
) (*model.ReviewAffiliateApplicationResponse, error) {
	if err := d.verifyAdmin(ctx); err != nil {
		return nil, err
	}

	status, err := enum.ToEnum[entity.AffiliateApplicationStatus](req.Status)
	if err != nil || status == entity.AffiliateApplicationPending {
		return nil, errorx.New(errorx.Validation, "Status must be approved or rejected")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	application, err := d.applicationRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	adminID := xcontext.RequestUserID(ctx)
	err = d.applicationRepo.Review(ctx, application.ID, status, strings.TrimSpace(req.AdminNotes), adminID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Application is already reviewed")
		}

		xcontext.Logger(ctx).Errorf("Cannot review application %s: %v", application.ID, err)
		return nil, errorx.Unknown
	}

	if status == entity.AffiliateApplicationApproved {
		if _, err := d.getOrCreateAffiliate(ctx, application.UserID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create affiliate of approved application %s: %v", application.ID, err)
			return nil, errorx.Unknown
		}
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit application review: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.Logger(ctx).Infof("Admin %s %s affiliate application %s", adminID, status, application.ID)
	return &model.ReviewAffiliateApplicationResponse{}, nil
}
