package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sendlens/sendlens-server/internal/api/http/handler"
	"github.com/sendlens/sendlens-server/internal/api/http/middleware"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router wires services into the HTTP API surface. It manages route
// registration and middleware configuration.
type Router struct {
	db             Pinger
	authService    *service.Auth
	connectService *service.Connect
	sharingService *service.Sharing
	searchService  *service.Search
	keyService     *service.APIKeys
	auditService   *service.Audit
	contextManager model.ContextManager
	settingsURL    string
	secureCookies  bool
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	db Pinger,
	authService *service.Auth,
	connectService *service.Connect,
	sharingService *service.Sharing,
	searchService *service.Search,
	keyService *service.APIKeys,
	auditService *service.Audit,
	contextManager model.ContextManager,
	settingsURL string,
	secureCookies bool,
	logger *logger.Logger,
) *Router {
	return &Router{
		db:             db,
		authService:    authService,
		connectService: connectService,
		sharingService: sharingService,
		searchService:  searchService,
		keyService:     keyService,
		auditService:   auditService,
		contextManager: contextManager,
		settingsURL:    settingsURL,
		secureCookies:  secureCookies,
		logger:         logger,
	}
}

// Register builds the gin engine with logging on every route and bearer
// authentication on everything except registration, login and the provider
// callback, which arrives as a bare browser redirect.
func (r *Router) Register() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	logging := middleware.NewLogging(r.logger)
	engine.Use(logging.Handle)

	authenticate := middleware.NewAuthenticate(r.authService.TokenService(), r.contextManager, r.logger)

	authHandler := handler.NewAuth(r.authService, r.authService.TokenService(), r.logger)
	gmailHandler := handler.NewGmail(r.connectService, r.contextManager, r.settingsURL, r.secureCookies, r.logger)
	sharingHandler := handler.NewSharing(r.sharingService, r.contextManager, r.logger)
	searchHandler := handler.NewSearch(r.searchService, r.contextManager, r.logger)
	keyHandler := handler.NewAPIKeys(r.keyService, r.contextManager, r.logger)
	auditHandler := handler.NewAudit(r.auditService, r.contextManager, r.logger)

	engine.GET("/healthz", func(c *gin.Context) {
		if err := r.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	engine.GET("/api/gmail/callback", gmailHandler.Callback)

	api := engine.Group("/api", authenticate.Handle)
	{
		api.GET("/gmail/auth-url", gmailHandler.AuthURL)
		api.POST("/gmail/disconnect", gmailHandler.Disconnect)
		api.POST("/gmail/refresh", gmailHandler.Refresh)
		api.GET("/gmail/accounts", gmailHandler.Accounts)

		api.GET("/gmail/permissions", sharingHandler.List)
		api.POST("/gmail/permissions", sharingHandler.Add)
		api.DELETE("/gmail/permissions", sharingHandler.Remove)

		api.POST("/gmail/search", searchHandler.Run)
		api.POST("/gmail/search/export", searchHandler.Export)
		api.GET("/gmail/exports/*key", searchHandler.DownloadExport)

		api.GET("/keys", keyHandler.List)
		api.POST("/keys", keyHandler.Create)
		api.DELETE("/keys/:id", keyHandler.Delete)
		api.POST("/keys/:id/default", keyHandler.SetDefault)
		api.POST("/keys/:id/validate", keyHandler.Validate)

		api.GET("/audit", auditHandler.List)
	}

	return engine
}
