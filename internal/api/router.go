package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-service/internal/api/handlers"
	custommiddleware "github.com/ndewijer/portfolio-service/internal/api/middleware"
	"github.com/ndewijer/portfolio-service/internal/auth"
	"github.com/ndewijer/portfolio-service/internal/service"
)

// RouterConfig carries the HTTP-level settings of the router.
type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	portfolioService *service.PortfolioService,
	authenticator auth.Authenticator,
	cfg RouterConfig,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(systemService)
	r.Get("/", systemHandler.Health)
	r.Get("/health", systemHandler.Health)
	r.Get("/version", systemHandler.Version)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.Auth(authenticator, log))

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
			r.Get("/", portfolioHandler.Portfolio)
			r.Post("/buy", portfolioHandler.Buy)
			r.Post("/sell", portfolioHandler.Sell)
			r.Get("/transactions", portfolioHandler.Transactions)
			r.Get("/performance", portfolioHandler.Performance)
		})
	})

	return r
}
