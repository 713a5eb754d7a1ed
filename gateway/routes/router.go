package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"emberchain/gateway/middleware"
	"emberchain/native/bonding"
)

// Config wires the gateway router to the bonding module and its middleware.
type Config struct {
	Engine        *bonding.Engine
	Registry      *bonding.Registry
	Oracle        *bonding.FeedOracle
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

// New builds the gateway HTTP handler: health and metrics endpoints plus the
// versioned bonding surface.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware("bonding"))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	bondingRoutes := newBondingRoutes(cfg.Engine, cfg.Registry, cfg.Oracle)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/bonds", bondingRoutes.bond)
		r.Get("/quote", bondingRoutes.quote)
		r.Post("/claims", bondingRoutes.claim)
		r.Post("/claims/batch", bondingRoutes.claimBatch)
		r.Post("/claims/all", bondingRoutes.claimAll)
		r.Get("/accounts/{address}/positions", bondingRoutes.positions)
		r.Get("/accounts/{address}/claimable", bondingRoutes.claimable)
		r.Get("/collateral", bondingRoutes.listCollateral)
		r.Get("/totals", bondingRoutes.totals)
		r.Get("/epoch", bondingRoutes.epoch)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/collateral", bondingRoutes.whitelist)
			r.Post("/collateral/remove", bondingRoutes.removeCollateral)
			r.Post("/collateral/capacity", bondingRoutes.setCapacity)
			r.Post("/collateral/bonus", bondingRoutes.setBonus)
			r.Post("/collateral/conversion", bondingRoutes.setConversion)
			r.Post("/tiers", bondingRoutes.setTierDiscount)
			r.Post("/prices", bondingRoutes.setPrice)
		})
	})
	return r
}
