package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/membersadmin/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/membersadmin/internal/app/features/errors"
	healthfeature "github.com/dalemusser/membersadmin/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/membersadmin/internal/app/features/heartbeat"
	loginfeature "github.com/dalemusser/membersadmin/internal/app/features/login"
	logoutfeature "github.com/dalemusser/membersadmin/internal/app/features/logout"
	membersfeature "github.com/dalemusser/membersadmin/internal/app/features/members"
	userinfofeature "github.com/dalemusser/membersadmin/internal/app/features/userinfo"
	"github.com/dalemusser/membersadmin/internal/app/store/audit"
	"github.com/dalemusser/membersadmin/internal/app/store/authstore"
	"github.com/dalemusser/membersadmin/internal/app/store/memberstore"
	"github.com/dalemusser/membersadmin/internal/app/system/auditlog"
	"github.com/dalemusser/membersadmin/internal/app/system/auth"
	"github.com/dalemusser/membersadmin/internal/app/system/facets"
	"github.com/dalemusser/membersadmin/internal/app/system/querystate"
	"github.com/dalemusser/membersadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/membersadmin/internal/app/system/roster"
	"github.com/dalemusser/membersadmin/internal/app/system/search"
	"github.com/dalemusser/membersadmin/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It builds the member backend clients,
// the roster pipeline and the per-session query state, applies session
// middleware, and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	bg := deps.Background
	if bg == nil {
		bg = &Background{}
	}

	// Member backend and the roster pipeline on top of it.
	members := memberstore.New(memberstore.Config{
		GraphQLEndpoint: appCfg.GraphQLEndpoint,
		APIBaseURL:      appCfg.APIBaseURL,
		PageSize:        appCfg.RosterPageSize,
		MaxPages:        appCfg.RosterMaxPages,
		Timeout:         appCfg.UpstreamTimeout,
	}, logger.Named("memberstore"))
	resolver := search.NewResolver(members, appCfg.SearchConcurrency, logger.Named("search"))
	rosterSvc := roster.New(members, resolver, facets.NewMemo(appCfg.FacetMemoSize), logger.Named("roster"))

	// Per-session query state, swept when idle.
	states := querystate.NewRegistry(rosterSvc, appCfg.StateIdleTTL, logger.Named("querystate"))
	if appCfg.StateIdleTTL > 0 {
		sweep := workers.NewStateSweep(states, logger, appCfg.StateSweepInterval)
		sweep.Start()
		bg.Add(sweep.Stop)
	}

	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRateLimit, appCfg.LoginUserRateLimit, appCfg.LoginRateWindow)
	bg.Add(limiter.Stop)

	var auditStore *audit.Store
	if deps.MongoDatabase != nil {
		auditStore = audit.New(deps.MongoDatabase)
	}
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Upstream: appCfg.AuditLogUpstream,
	})

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = deps.MongoClient
	}
	healthHandler := healthfeature.NewHandler(pinger, appCfg.APIBaseURL, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	authClient := authstore.New(appCfg.AuthLoginEndpoint, appCfg.UpstreamTimeout, nil, logger.Named("authstore"))
	loginHandler := loginfeature.NewHandler(authClient, sessionMgr, limiter, auditLog, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, states, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Member list
	membersHandler := membersfeature.NewHandler(rosterSvc, states, sessionMgr, errLog, auditLog, logger)
	r.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))

	heartbeatHandler := heartbeatfeature.NewHandler(states, appCfg.StateIdleWarning, logger)
	r.Mount("/heartbeat", heartbeatfeature.Routes(heartbeatHandler, sessionMgr))

	// Audit log viewer; answers 503 when no audit store is configured.
	var auditEvents auditlogfeature.EventQuerier
	if auditStore != nil {
		auditEvents = auditStore
	}
	auditHandler := auditlogfeature.NewHandler(auditEvents, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
