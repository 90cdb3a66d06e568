package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/circulate/internal/auth"
)

// RouterConfig carries the controllers and middleware needed to build
// the router.
type RouterConfig struct {
	Books        *BooksController
	Members      *MembersController
	Transactions *TransactionsController
	Reports      *ReportsController
	Health       *HealthController

	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
}

// NewRouter creates and configures the HTTP router with all
// endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before session so the session context is
	// preserved.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	router.GET("/health", cfg.Health.Status)

	if cfg.AuthHandlers != nil {
		authGroup := router.Group("/api/auth")
		{
			authGroup.POST("/register", cfg.AuthHandlers.Register)
			authGroup.POST("/login", cfg.AuthHandlers.Login)
			authGroup.POST("/logout", cfg.AuthHandlers.Logout)
			authGroup.GET("/session", cfg.AuthHandlers.Session)
		}
	}

	api := router.Group("/api")
	{
		api.GET("/books", cfg.Books.List)
		api.POST("/books", cfg.Books.Create)
		api.GET("/books/categories", cfg.Books.Categories)
		api.GET("/books/:id", cfg.Books.Get)
		api.DELETE("/books/:id", cfg.Books.Delete)

		api.GET("/members", cfg.Members.List)
		api.POST("/members", cfg.Members.Create)
		api.PUT("/members/:id", cfg.Members.Update)
		api.DELETE("/members/:id", cfg.Members.Delete)

		api.GET("/transactions", cfg.Transactions.List)
		api.POST("/transactions/issue", cfg.Transactions.Issue)
		api.POST("/transactions/:id/return", cfg.Transactions.Return)
		api.DELETE("/transactions/:id", cfg.Transactions.Delete)

		api.GET("/reports/summary", cfg.Reports.Summary)
		api.GET("/reports/popular", cfg.Reports.Popular)
		api.GET("/reports/categories", cfg.Reports.Categories)
		api.GET("/reports/overdue", cfg.Reports.Overdue)
		api.GET("/reports/timeseries", cfg.Reports.TimeSeries)

		api.GET("/dashboard", cfg.Reports.Dashboard)
	}

	return router
}
