package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitetrack/bitetrack-backend/api/controllers"
	"github.com/bitetrack/bitetrack-backend/api/middleware"
	"github.com/bitetrack/bitetrack-backend/internal/auth"
	"github.com/bitetrack/bitetrack-backend/internal/catalog"
	"github.com/bitetrack/bitetrack-backend/internal/customers"
	"github.com/bitetrack/bitetrack-backend/internal/drops"
	"github.com/bitetrack/bitetrack-backend/internal/sales"
	"github.com/bitetrack/bitetrack-backend/internal/sellers"
	"github.com/bitetrack/bitetrack-backend/pkg/auth/session"
	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/redis"
)

// sessionManager is everything the routed auth surface needs from the Redis
// session manager: liveness checks for the auth middleware plus rotate and
// revoke for the session endpoints.
type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Deps bundles the services and infrastructure handles the router wires into
// handlers and middleware. Metrics may be nil, which leaves /metrics unrouted.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     *redis.Client
	Sessions  sessionManager
	Auth      auth.Service
	Catalog   catalog.Service
	Customers customers.Service
	Sellers   sellers.Service
	Sales     sales.Service
	Drops     drops.Service
	Metrics   prometheus.Gatherer
}

// NewRouter builds the chi handler tree for the API.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		deps.Config.AuthRateLimit.LoginWindow,
		deps.Config.AuthRateLimit.LoginIPLimit,
		deps.Config.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/api/v1/healthz", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.DB, deps.Redis, deps.Logger))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, deps.Logger)).Post("/login", controllers.AuthLogin(deps.Auth, deps.Logger))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, deps.Config.JWT, deps.Logger))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, deps.Config.JWT, deps.Logger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Config.JWT, deps.Sessions, deps.Logger))
		r.Use(middleware.Idempotency(deps.Redis, deps.Logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, deps.Logger))
			r.With(middleware.RequireRole("admin", deps.Logger)).Post("/", controllers.ProductCreate(deps.Catalog, deps.Logger))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, deps.Logger))
			r.With(middleware.RequireRole("admin", deps.Logger)).Patch("/{productId}", controllers.ProductUpdate(deps.Catalog, deps.Logger))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(deps.Customers, deps.Logger))
			r.Post("/", controllers.CustomerCreate(deps.Customers, deps.Logger))
			r.Get("/{customerId}", controllers.CustomerDetail(deps.Customers, deps.Logger))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.SaleRecord(deps.Sales, deps.Logger))
			r.Get("/", controllers.SaleList(deps.Sales, deps.Logger))
			r.Get("/{saleId}", controllers.SaleDetail(deps.Sales, deps.Logger))
			r.Patch("/{saleId}/settlement", controllers.SaleSettle(deps.Sales, deps.Logger))
		})

		r.Route("/drops", func(r chi.Router) {
			r.Post("/", controllers.DropRecord(deps.Drops, deps.Logger))
			r.Get("/", controllers.DropList(deps.Drops, deps.Logger))
			r.Get("/{dropId}", controllers.DropDetail(deps.Drops, deps.Logger))
			r.Post("/{dropId}/reversal", controllers.DropReverse(deps.Drops, deps.Logger))
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Get("/me", controllers.SellerMe(deps.Sellers, deps.Logger))
			r.With(middleware.RequireRole("admin", deps.Logger)).Post("/", controllers.SellerCreate(deps.Sellers, deps.Logger))
		})
	})

	return r
}
