// Package router wires the public MP API routes and applies the middleware
// chain.
package router

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/middleware"
)

// Options carries the optional collaborators. A nil Limiter disables rate
// limiting, nil Metrics disables request metrics and a zero Timeout disables
// the per-request deadline.
type Options struct {
	AllowOrigins []string
	Limiter      *apimw.Limiter
	Metrics      *metrics.Metrics
	Timeout      time.Duration
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /                        → welcome message
//	GET    /api/mps                 → filtered, paginated MP list
//	GET    /api/mps/{id}            → single MP
//	GET    /api/analytics           → total and party distribution
//	GET    /api/cache/stats         → page cache counters
//	POST   /api/cache/invalidate    → drop cached pages
//	GET    /health/live             → liveness
//	GET    /health/ready            → readiness (503 until the dataset loads)
//
// Middleware chain (outermost first):
//
//	RequestID → RealIP → Recoverer → CORS → RateLimit → Metrics → Timeout → mux
func New(h *handler.Handler, checker *health.Checker, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)

	mux.HandleFunc("GET /api/mps", h.ListMPs)
	mux.HandleFunc("GET /api/mps/{id}", h.GetMP)
	mux.HandleFunc("GET /api/analytics", h.Analytics)

	mux.HandleFunc("GET /api/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = pkgmw.Timeout(opts.Timeout)(chain)
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	if opts.Limiter != nil {
		chain = apimw.RateLimit(opts.Limiter, opts.Metrics)(chain)
	}
	chain = apimw.CORS(apimw.DefaultCORSConfig(opts.AllowOrigins))(chain)
	chain = chimw.Recoverer(chain)
	chain = chimw.RealIP(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
