package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/internal/model"
)

var (
	ErrInvalidIssuer     = errors.New("token has another issuer")
	ErrInvalidAudience   = errors.New("token is not meant for this audience")
	ErrMissingExpiration = errors.New("token never expires")
	ErrInvalidUser       = errors.New("token subject does not match its user")
)

// AccessTokenClaims are the claims of a user access token. The subject is the
// user id.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	User model.AccessToken `json:"user"`
}

// AccessTokenVerifier accepts HS256 access tokens signed with the shared
// secret of the auth service.
type AccessTokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewAccessTokenVerifier(cfg config.AuthConfigs) *AccessTokenVerifier {
	return &AccessTokenVerifier{
		secret:   []byte(cfg.TokenSecret),
		issuer:   cfg.TokenIssuer,
		audience: cfg.TokenAudience,
	}
}

func (v *AccessTokenVerifier) Verify(token string) (model.AccessToken, error) {
	var claims AccessTokenClaims
	_, err := jwt.ParseWithClaims(
		token, &claims,
		func(*jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return model.AccessToken{}, err
	}

	if claims.ExpiresAt == nil {
		return model.AccessToken{}, ErrMissingExpiration
	}

	if !claims.VerifyIssuer(v.issuer, true) {
		return model.AccessToken{}, ErrInvalidIssuer
	}

	if !claims.VerifyAudience(v.audience, true) {
		return model.AccessToken{}, ErrInvalidAudience
	}

	if claims.User.ID == "" || claims.Subject != claims.User.ID {
		return model.AccessToken{}, ErrInvalidUser
	}

	return claims.User, nil
}
