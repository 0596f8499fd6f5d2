// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	activityapifeature "github.com/dalemusser/engagehub/internal/app/features/activityapi"
	authapifeature "github.com/dalemusser/engagehub/internal/app/features/authapi"
	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	eventsapifeature "github.com/dalemusser/engagehub/internal/app/features/eventsapi"
	expertsapifeature "github.com/dalemusser/engagehub/internal/app/features/expertsapi"
	feedbackapifeature "github.com/dalemusser/engagehub/internal/app/features/feedbackapi"
	healthfeature "github.com/dalemusser/engagehub/internal/app/features/health"
	usersapifeature "github.com/dalemusser/engagehub/internal/app/features/usersapi"
	accountstore "github.com/dalemusser/engagehub/internal/app/store/accounts"
	"github.com/dalemusser/engagehub/internal/app/store/oauthstate"
	"github.com/dalemusser/engagehub/internal/app/system/apicors"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/token"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// The whole surface is a JSON API consumed by the SPA. Every /api route
// authenticates with a bearer token; there are no sessions, no CSRF, and
// no server-rendered pages.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Token manager signs and verifies bearer tokens. The verifier resolves
	// each token to a live account so role changes and deactivations take
	// effect immediately.
	tokens := token.New(appCfg.JWTSecret, appCfg.TokenTTL)
	verifier := auth.NewVerifier(tokens, accountstore.NewFetcher(deps.MongoDatabase, logger), logger)

	// Shared async activity recorder, created in Startup.
	recorder := activityRecorder

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	googleEnabled := appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != ""
	if googleEnabled {
		logger.Info("Google OAuth enabled",
			zap.String("redirect_url", appCfg.BaseURL+"/api/auth/google/callback"))
	} else {
		logger.Warn("Google OAuth not configured; sign-in endpoints will reject requests")
	}

	r.Route("/api", func(api chi.Router) {
		// The SPA may be served from a different origin than the API.
		api.Use(apicors.Middleware())

		authHandler := authapifeature.NewHandler(
			deps.MongoDatabase,
			tokens,
			recorder,
			errLog,
			oauthstate.New(deps.MongoDatabase),
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			appCfg.FrontendURL,
			logger,
		)
		api.Mount("/auth", authapifeature.Routes(authHandler, verifier))

		usersHandler := usersapifeature.NewHandler(deps.MongoDatabase, recorder, errLog)
		api.Mount("/users", usersapifeature.Routes(usersHandler, verifier))

		expertsHandler := expertsapifeature.NewHandler(deps.MongoDatabase, recorder, errLog)
		api.Mount("/experts", expertsapifeature.Routes(expertsHandler, verifier))

		eventsHandler := eventsapifeature.NewHandler(deps.MongoDatabase, recorder, errLog)
		api.Mount("/events", eventsapifeature.Routes(eventsHandler, verifier))

		feedbackHandler := feedbackapifeature.NewHandler(deps.MongoDatabase, recorder, errLog)
		api.Mount("/feedback", feedbackapifeature.Routes(feedbackHandler, verifier))

		activityHandler := activityapifeature.NewHandler(deps.MongoDatabase, errLog)
		api.Mount("/activity", activityapifeature.Routes(activityHandler, verifier))
	})

	// JSON 404 for unmatched routes
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonutil.NotFound(w, "Route not found")
	})

	return r, nil
}
