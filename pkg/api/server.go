package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/backer/pkg/audit"
	"github.com/platinummonkey/backer/pkg/export"
	"github.com/platinummonkey/backer/pkg/features"
	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/observability"
)

// BasePath is the prefix of every subscriptions route
const BasePath = "/api/v1/subscriptions"

// DefaultMaxBodyBytes bounds request bodies when Deps.MaxBodyBytes is unset
const DefaultMaxBodyBytes = 1 << 20

// Deps collects the collaborators of the HTTP surface. Flags, Metrics,
// OTelMetrics, Uploader, Audit and SessionLimiter may be nil.
type Deps struct {
	Tiers         TierService
	Benefits      BenefitService
	Subscriptions SubscriptionService
	Sessions      SessionService
	Resolver      ScopeResolver
	Authenticator middleware.Authenticator
	Flags         features.Flags
	Metrics       *observability.Metrics
	OTelMetrics   *observability.OTelMetrics
	Uploader      export.Uploader
	Audit         audit.Logger
	Logger        *observability.Logger

	// SessionLimiter throttles checkout session creation
	SessionLimiter func(http.Handler) http.Handler
	MaxBodyBytes   int64
}

// Server is the subscriptions HTTP surface
type Server struct {
	router *mux.Router
	deps   Deps

	subscriptionHandlers *SubscriptionHandlers
}

// NewServer builds the router and registers every route
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	api := router.PathPrefix(BasePath).Subrouter()
	api.Use(middleware.NewAuthMiddleware(deps.Authenticator).Handler)
	api.Use(middleware.FeatureGate(deps.Flags, features.FlagSubscriptions, deps.Metrics))
	if deps.Metrics != nil {
		api.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	if deps.Audit != nil {
		api.Use(audit.NewMiddleware(deps.Audit).Handler)
	}

	NewTierHandlers(deps.Tiers, deps.Resolver).RegisterRoutes(api.PathPrefix("/tiers").Subrouter())
	NewBenefitHandlers(deps.Benefits, deps.Resolver).RegisterRoutes(api.PathPrefix("/benefits").Subrouter())
	NewSessionHandlers(deps.Sessions, deps.SessionLimiter).RegisterRoutes(api.PathPrefix("/subscribe-sessions").Subrouter())
	subs := NewSubscriptionHandlers(deps.Subscriptions, deps.Resolver, deps.Uploader)
	subs.otel = deps.OTelMetrics
	subs.RegisterRoutes(api.PathPrefix("/subscriptions").Subrouter())

	return &Server{router: router, deps: deps, subscriptionHandlers: subs}
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with request id, logging, panic
// recovery, body limits and tracing
func (s *Server) Handler() http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.deps.Logger),
		observability.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(s.deps.MaxBodyBytes),
	)
	return otelhttp.NewHandler(chain(s.router), "backer.api")
}
