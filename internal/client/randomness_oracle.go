package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/powersol-lab/backend/pkg/api"
	"github.com/powersol-lab/backend/pkg/retry"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

// RandomnessOracle asks an external verifiable randomness service for a value.
// The value is delivered later on the randomness webhook, keyed by requestID.
type RandomnessOracle interface {
	Request(ctx context.Context, requestID, seed string) error
}

type randomnessOracle struct {
	apiGenerator api.Generator
	apiKey       string
	callbackURL  string
}

func NewRandomnessOracle(apiGenerator api.Generator, apiKey, callbackURL string) *randomnessOracle {
	return &randomnessOracle{
		apiGenerator: apiGenerator,
		apiKey:       apiKey,
		callbackURL:  callbackURL,
	}
}

func (c *randomnessOracle) Request(ctx context.Context, requestID, seed string) error {
	cfg := xcontext.Configs(ctx).Retry
	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseDelay}

	return retry.DoNotify(ctx, policy,
		func() error {
			resp, err := c.apiGenerator.New("/randomness").
				Body(api.JSON{
					"requestId":   requestID,
					"seed":        seed,
					"callbackUrl": c.callbackURL,
				}).
				POST(ctx, api.Bearer(c.apiKey), api.IdempotencyKey(requestID))
			if err != nil {
				return err
			}

			if resp.Code != http.StatusOK && resp.Code != http.StatusAccepted {
				// 4xx means the request itself is wrong, retrying cannot help.
				return retry.Permanent(fmt.Errorf("oracle rejected %s: %d %s", requestID, resp.Code, resp.RawBody))
			}

			return nil
		},
		func(err error, wait time.Duration) {
			xcontext.Logger(ctx).Warnf("Cannot request randomness %s, retry in %s: %v", requestID, wait, err)
		},
	)
}
