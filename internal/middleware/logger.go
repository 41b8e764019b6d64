package middleware

import (
	"context"
	"fmt"

	"github.com/powersol-lab/backend/pkg/router"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

func Logger() router.CloserFunc {
	return func(ctx context.Context) {
		req := xcontext.HTTPRequest(ctx)
		info := fmt.Sprintf("%s | %s", req.Method, req.URL.Path)

		switch code := errorCode(xcontext.Error(ctx)); code {
		case 0:
			xcontext.Logger(ctx).Infof("%s", info)
		case -1:
			xcontext.Logger(ctx).Errorf("%s | %d", info, code)
		default:
			xcontext.Logger(ctx).Warnf("%s | %d", info, code)
		}
	}
}
