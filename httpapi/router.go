package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/middleware"
)

// Engine is the subset of *tokenlife.Engine served over HTTP.
type Engine interface {
	Login(ctx context.Context, identifier, secret string) (*tokenlife.Response, error)
	CompleteRegistration(ctx context.Context, bearer string, payload tokenlife.RegistrationPayload) (*tokenlife.Response, error)
	Refresh(ctx context.Context, bearer, refreshToken, username string) (*tokenlife.Response, error)
	Logout(ctx context.Context, bearer string) error
	Upgrade(ctx context.Context, bearer string) (*tokenlife.Response, error)
	ResolvePrincipal(ctx context.Context, bearer string) (tokenlife.Principal, error)
}

// Options configures NewRouter.
type Options struct {
	Logger *slog.Logger
	// Timeout bounds each request. Zero disables the deadline.
	Timeout time.Duration
	// BasePath mounts every route under a prefix such as "/api".
	BasePath string
}

// NewRouter returns the HTTP handler for engine.
func NewRouter(engine Engine, opts Options) http.Handler {
	root := chi.NewRouter()

	// outermost first; RequestID must precede Logging
	root.Use(
		Recover(),
		RequestID(),
		Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(chimw.Timeout(opts.Timeout))
	}

	h := &handlers{engine: engine}

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

func registerRoutes(r chi.Router, h *handlers) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)

		r.With(middleware.Guard(h.engine)).Get("/principal", h.principal)
	})
}
