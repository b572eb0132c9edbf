package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-signup-verify/internal/application/auth"
	"github.com/go-signup-verify/internal/application/verification"
	"github.com/go-signup-verify/internal/config"
	"github.com/go-signup-verify/internal/infrastructure/smtp"
	"github.com/go-signup-verify/internal/observability"
	"github.com/go-signup-verify/internal/transport/http/handler"
	appmiddleware "github.com/go-signup-verify/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      UserRepository
	TokenProvider TokenProvider
	Mailer        smtp.Mailer
	Renderer      smtp.Renderer        // defaults to the built-in verification template
	Issuer        *verification.Issuer // defaults to a crypto/rand issuer
	Metrics       *observability.Metrics
}

// NewRouter builds and returns the application router. The auth endpoints are
// served under /v1 and, unversioned, at the root.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(deps.Metrics.Middleware)
	r.Use(appmiddleware.SecureHeaders(cfg.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	renderer := deps.Renderer
	if renderer == nil {
		renderer = smtp.NewRenderer()
	}
	issuer := deps.Issuer
	if issuer == nil {
		issuer = verification.NewIssuer()
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: deps.UserRepo,
		Issuer:   issuer,
		Minter:   deps.TokenProvider,
		Mailer:   deps.Mailer,
		Renderer: renderer,
		Metrics:  deps.Metrics,
	})

	healthH := handler.NewHealthHandler(deps.UserRepo)
	authH := handler.NewAuthHandler(authSvc)

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	r.Post("/signup", authH.Signup)
	r.Post("/verify-email", authH.VerifyEmail)
	r.Post("/login", authH.Login)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/signup", authH.Signup)
		r.Post("/verify-email", authH.VerifyEmail)
		r.Post("/login", authH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.TokenProvider))
			r.Get("/me", authH.Me)
		})
	})

	return r
}
