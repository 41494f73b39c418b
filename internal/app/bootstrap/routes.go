// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	auditlogfeature "github.com/dalemusser/melange/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/melange/internal/app/features/authgoogle"
	connectionsfeature "github.com/dalemusser/melange/internal/app/features/connections"
	conversationsfeature "github.com/dalemusser/melange/internal/app/features/conversations"
	dashboardfeature "github.com/dalemusser/melange/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/melange/internal/app/features/errors"
	healthfeature "github.com/dalemusser/melange/internal/app/features/health"
	loginfeature "github.com/dalemusser/melange/internal/app/features/login"
	logoutfeature "github.com/dalemusser/melange/internal/app/features/logout"
	organizationsfeature "github.com/dalemusser/melange/internal/app/features/organizations"
	orgtasksfeature "github.com/dalemusser/melange/internal/app/features/orgtasks"
	profilefeature "github.com/dalemusser/melange/internal/app/features/profile"
	programsfeature "github.com/dalemusser/melange/internal/app/features/programs"
	projectsfeature "github.com/dalemusser/melange/internal/app/features/projects"
	proposalsfeature "github.com/dalemusser/melange/internal/app/features/proposals"
	tasksfeature "github.com/dalemusser/melange/internal/app/features/tasks"
	userstore "github.com/dalemusser/melange/internal/app/store/users"
	"github.com/dalemusser/melange/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Site-wide routes mount at the root; everything
// that belongs to one program mounts under /programs/{program}.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := currentServices()
	if s == nil {
		return nil, errors.New("bootstrap: services not started")
	}
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request so role
	// changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(appCfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.Metrics.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, s.QueueStore, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", s.Metrics.Handler(logger))

	// Task delivery from the dispatcher (bearer token, no session)
	tasksHandler := tasksfeature.NewHandler(s.Jobs, errLog, logger)
	r.Mount("/tasks", tasksfeature.Routes(tasksHandler, s.Signer))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, s.Audit, s.LoginLimiter, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.With(sessionMgr.RequireSignedIn).Get("/me", loginHandler.ServeMe)

	logoutHandler := logoutfeature.NewHandler(sessionMgr, s.Audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(
			db, sessionMgr, errLog, s.Audit, s.OAuthStates,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.SiteAdminEmail,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Site-wide user views
	dashboardHandler := dashboardfeature.NewHandler(db, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(db, errLog, logger)
	r.Mount("/profiles", profilefeature.AllRoutes(profileHandler, sessionMgr))

	connectionsHandler := connectionsfeature.NewHandler(db, errLog, s.Negotiation, appCfg.SessionKey, secure, logger)
	r.Mount("/connections/anonymous", connectionsfeature.InviteRoutes(connectionsHandler, sessionMgr))

	// Programs and everything scoped to one program
	programsHandler := programsfeature.NewHandler(db, errLog, s.Audit, logger)
	r.Mount("/programs", programsfeature.Routes(programsHandler, sessionMgr))

	orgHandler := organizationsfeature.NewHandler(db, errLog, s.Audit, s.Negotiation, s.Queue, logger)
	proposalsHandler := proposalsfeature.NewHandler(db, errLog, s.Audit, s.Queue, logger)
	projectsHandler := projectsfeature.NewHandler(db, errLog, logger)
	orgTasksHandler := orgtasksfeature.NewHandler(db, errLog, logger)
	conversationsHandler := conversationsfeature.NewHandler(db, errLog, s.Participants, s.Queue, appCfg.BaseURL, logger)
	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)

	r.Mount("/programs/{program}/profile", profilefeature.Routes(profileHandler, sessionMgr))
	r.Mount("/programs/{program}/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))
	r.Mount("/programs/{program}/connections", connectionsfeature.Routes(connectionsHandler, sessionMgr))
	r.Mount("/programs/{program}/proposals", proposalsfeature.Routes(proposalsHandler, sessionMgr))
	r.Mount("/programs/{program}/projects", projectsfeature.Routes(projectsHandler, sessionMgr))
	r.Mount("/programs/{program}/org_tasks", orgtasksfeature.Routes(orgTasksHandler, sessionMgr))
	r.Mount("/programs/{program}/conversations", conversationsfeature.Routes(conversationsHandler, sessionMgr))
	r.Mount("/programs/{program}/dashboard", dashboardfeature.ProgramRoutes(dashboardHandler, sessionMgr))
	r.Mount("/programs/{program}/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	r.NotFound(errorsfeature.NotFoundHandler)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowedHandler)

	return r, nil
}
