package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/powersol-lab/backend/config"
	"github.com/rs/cors"
	"golang.org/x/exp/slices"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc may return a new context which replaces the current one for
// the rest of the request. A nil context keeps the current one.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response is written, whether the request failed
// or not.
type CloserFunc func(ctx context.Context)

type Router struct {
	ctx    context.Context
	engine *gin.Engine

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

func New(ctx context.Context) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{ctx: ctx, engine: engine}
}

// Branch returns a router sharing the routes of r. Middlewares added to the
// branch do not affect r.
func (r *Router) Branch() *Router {
	return &Router{
		ctx:     r.ctx,
		engine:  r.engine,
		befores: slices.Clone(r.befores),
		afters:  slices.Clone(r.afters),
		closers: slices.Clone(r.closers),
	}
}

func (r *Router) Before(middleware ...MiddlewareFunc) {
	r.befores = append(r.befores, middleware...)
}

func (r *Router) After(middleware ...MiddlewareFunc) {
	r.afters = append(r.afters, middleware...)
}

func (r *Router) AddCloser(closer ...CloserFunc) {
	r.closers = append(r.closers, closer...)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodGet, pattern, handler)
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodPost, pattern, handler)
}

// Mount serves a plain http.Handler, bypassing middlewares and the response
// envelope.
func (r *Router) Mount(method, pattern string, handler http.Handler) {
	r.engine.Handle(method, pattern, gin.WrapH(handler))
}

func (r *Router) Handler(cfg config.APIServerConfigs) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
		},
		AllowCredentials: true,
	}).Handler(r.engine)
}
