package common

import (
	"context"

	"github.com/powersol-lab/backend/pkg/xcontext"
)

// Limit clamps a client supplied page size to the configured bounds.
func Limit(ctx context.Context, limit int) int {
	cfg := xcontext.Configs(ctx).ApiServer
	if limit <= 0 {
		return cfg.DefaultLimit
	}

	if limit > cfg.MaxLimit {
		return cfg.MaxLimit
	}

	return limit
}
