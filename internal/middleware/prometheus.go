package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/router"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

func WithStartTime() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		return xcontext.WithStartTime(ctx, time.Now()), nil
	}
}

func Prometheus() router.CloserFunc {
	return func(ctx context.Context) {
		startTime := xcontext.StartTime(ctx)
		path := xcontext.HTTPRequest(ctx).URL.Path
		code := fmt.Sprint(errorCode(xcontext.Error(ctx)))

		common.PromCounters[common.HTTPRequestTotal].WithLabelValues(path, code).Inc()
		common.PromHistograms[common.HTTPRequestDurationSeconds].
			WithLabelValues(path, code).Observe(time.Since(startTime).Seconds())
	}
}

// errorCode returns 0 for a successful request and -1 for an unexpected error.
func errorCode(err error) int {
	if err == nil {
		return 0
	}

	var errx errorx.Error
	if errors.As(err, &errx) {
		return int(errx.Code)
	}

	return -1
}
