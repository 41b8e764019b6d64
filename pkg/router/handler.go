package router

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

func route[Request, Response any](
	r *Router,
	method string,
	pattern string,
	handler HandlerFunc[Request, Response],
) {
	// Middlewares added after the route is registered do not apply to it.
	befores := slices.Clone(r.befores)
	afters := slices.Clone(r.afters)
	closers := slices.Clone(r.closers)

	r.engine.Handle(method, pattern, func(c *gin.Context) {
		ctx := r.requestContext(c)
		defer func() {
			for _, closer := range closers {
				closer(ctx)
			}
		}()

		var resp *Response
		ctx, err := runMiddlewares(ctx, befores)
		if err == nil {
			var req Request
			if err = bind(c, method, &req); err == nil {
				resp, err = handler(ctx, &req)
			}
		}

		if err == nil {
			ctx = xcontext.WithResponse(ctx, resp)
			ctx, err = runMiddlewares(ctx, afters)
		}

		if err != nil {
			ctx = xcontext.WithError(ctx, err)
			writeError(ctx, c, err)
			return
		}

		c.JSON(http.StatusOK, newResponse(resp))
	})
}

func (r *Router) requestContext(c *gin.Context) context.Context {
	ctx := xcontext.WithHTTPRequest(r.ctx, c.Request)
	ctx = xcontext.WithHTTPWriter(ctx, c.Writer)
	ctx = xcontext.WithRequestIP(ctx, c.ClientIP())
	ctx = xcontext.WithRequestUserAgent(ctx, c.Request.UserAgent())
	return ctx
}

func runMiddlewares(ctx context.Context, middlewares []MiddlewareFunc) (context.Context, error) {
	for _, middleware := range middlewares {
		newCtx, err := middleware(ctx)
		if err != nil {
			return ctx, err
		}

		if newCtx != nil {
			ctx = newCtx
		}
	}

	return ctx, nil
}

func bind(c *gin.Context, method string, req any) error {
	switch method {
	case http.MethodGet:
		if err := c.ShouldBindQuery(req); err != nil {
			return errorx.New(errorx.BadRequest, "Invalid query: %v", err)
		}

	case http.MethodPost:
		// An empty body leaves the request zero valued.
		if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
			return errorx.New(errorx.Validation, "Malformed request body")
		}
	}

	return nil
}
