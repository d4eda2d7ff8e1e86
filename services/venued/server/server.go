package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corndex/core"
	"corndex/observability"
)

const requestLimit = 1 << 20 // 1 MiB

// Server exposes a venue over JSON/HTTP.
type Server struct {
	venue  *core.Venue
	logger *slog.Logger
	router http.Handler
}

// New builds the router for venue. A nil logger uses slog.Default.
func New(venue *core.Venue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{venue: venue, logger: logger}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/pool", func(pool chi.Router) {
		pool.Get("/", s.getPool)
		pool.Get("/quote", s.getQuote)
		pool.Post("/swap", s.swap)
		pool.Post("/liquidity/add", s.addLiquidity)
		pool.Post("/liquidity/remove", s.removeLiquidity)
	})
	r.Get("/positions", s.listPositions)
	r.Get("/positions/{address}", s.getPosition)
	r.Route("/lending", func(lending chi.Router) {
		lending.Post("/collateral/add", s.addCollateral)
		lending.Post("/collateral/withdraw", s.withdrawCollateral)
		lending.Post("/borrow", s.borrow)
		lending.Post("/repay", s.repay)
		lending.Post("/liquidate", s.liquidate)
	})
	r.Post("/liquidator/execute", s.executeLiquidation)
	r.Route("/leverage", func(lev chi.Router) {
		lev.Get("/", s.getLeverager)
		lev.Post("/claim", s.claimLeverager)
		lev.Post("/fund", s.fundLeverager)
		lev.Post("/open", s.openLeverage)
		lev.Post("/close", s.closeLeverage)
		lev.Post("/withdraw", s.withdrawLeverager)
	})
	r.Route("/token/{symbol}", func(tok chi.Router) {
		tok.Post("/approve", s.approve)
		tok.Post("/transfer", s.transfer)
		tok.Get("/balance/{address}", s.getBalance)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observeRequests records every request against its chi route pattern.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTPMetrics().Observe(route, r.Method, status, time.Since(start))
	})
}
