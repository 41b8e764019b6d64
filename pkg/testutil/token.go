package testutil

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
	"github.com/powersol-lab/backend/pkg/jwt"
)

// AccessTokenClaims returns the claims the auth service issues to user.
func AccessTokenClaims(cfg config.AuthConfigs, user *entity.User, ttl time.Duration) jwt.AccessTokenClaims {
	now := time.Now()
	return jwt.AccessTokenClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    cfg.TokenIssuer,
			Audience:  gojwt.ClaimStrings{cfg.TokenAudience},
			Subject:   user.ID,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
		User: model.AccessToken{ID: user.ID, Wallet: user.Wallet},
	}
}

func SignAccessToken(secret string, claims jwt.AccessTokenClaims) string {
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}

	return token
}

// MockAccessToken returns a valid access token of user under MockConfigs.
func MockAccessToken(user *entity.User) string {
	cfg := MockConfigs().Auth
	return SignAccessToken(cfg.TokenSecret, AccessTokenClaims(cfg, user, time.Minute))
}
