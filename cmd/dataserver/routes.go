package main

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/metrics"
	"github.com/bitechdev/DataProvider/pkg/middleware"
	"github.com/bitechdev/DataProvider/pkg/provider"
	"github.com/bitechdev/DataProvider/pkg/restapi"
	"github.com/bitechdev/DataProvider/pkg/tracing"
)

// buildRouter registers one REST resource per entity on db
func buildRouter(cfg *config.Config, db *sql.DB, prom *metrics.PrometheusProvider, opts ...provider.Option) (*mux.Router, error) {
	router := mux.NewRouter()
	router.Use(tracing.Middleware)
	if prom != nil {
		router.Use(prom.Middleware(restapi.RouteTemplate))
		if cfg.Metrics.Enabled {
			router.Handle(cfg.Metrics.Path, prom.Handler()).Methods(http.MethodGet)
		}
	}

	api := router.NewRoute().Subrouter()
	api.Use(middleware.NewRequestSizeLimiter(cfg.Server.MaxBodySize).Middleware)

	customers, err := provider.New(db, func() *Customer { return &Customer{} }, opts...)
	if err != nil {
		return nil, err
	}
	restapi.Register(api, "customers", customers)

	products, err := provider.New(db, func() *Product { return &Product{} }, opts...)
	if err != nil {
		return nil, err
	}
	restapi.Register(api, "products", products)

	return router, nil
}

// withRateLimit wraps h when a per client rate is configured. The returned
// stop function releases the limiter.
func withRateLimit(cfg config.ServerConfig, h http.Handler) (http.Handler, func()) {
	if cfg.RateLimitRPS <= 0 {
		return h, func() {}
	}
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	return rl.Middleware(h), rl.Close
}
