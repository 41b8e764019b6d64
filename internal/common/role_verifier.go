package common

import (
	"context"
	"errors"

	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

var ErrNotAdmin = errors.New("user is not an administrator")

type AdminVerifier struct {
	userRepo repository.UserRepository
}

func NewAdminVerifier(userRepo repository.UserRepository) *AdminVerifier {
	return &AdminVerifier{userRepo: userRepo}
}

func (verifier *AdminVerifier) Verify(ctx context.Context) error {
	u, err := verifier.userRepo.GetByID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		return err
	}

	if !u.IsAdmin {
		return ErrNotAdmin
	}

	return nil
}
