package middleware

import (
	"context"
	"strings"

	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/jwt"
	"github.com/powersol-lab/backend/pkg/router"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

type AuthVerifier struct {
	verifier *jwt.AccessTokenVerifier
}

func NewAuthVerifier(ctx context.Context) *AuthVerifier {
	return &AuthVerifier{
		verifier: jwt.NewAccessTokenVerifier(xcontext.Configs(ctx).Auth),
	}
}

// Middleware puts the user id of the bearer access token into the context.
func (a *AuthVerifier) Middleware() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		token := bearerToken(ctx)
		if token == "" {
			return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		info, err := a.verifier.Verify(token)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Invalid access token: %v", err)
			return nil, errorx.New(errorx.Unauthenticated, "Invalid or expired access token")
		}

		return xcontext.WithRequestUserID(ctx, info.ID), nil
	}
}

func bearerToken(ctx context.Context) string {
	req := xcontext.HTTPRequest(ctx)
	if req == nil {
		return ""
	}

	auth, token, found := strings.Cut(req.Header.Get("Authorization"), " ")
	if !found || auth != "Bearer" {
		return ""
	}

	return token
}
