// Package entrypoint wires the repositories, controllers and router
// together and runs the HTTP server.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/circulate/internal/auth"
	"github.com/openshelf/circulate/internal/config"
	"github.com/openshelf/circulate/internal/database"
	"github.com/openshelf/circulate/internal/database/catalog"
	"github.com/openshelf/circulate/internal/database/ledger"
	"github.com/openshelf/circulate/internal/database/members"
	"github.com/openshelf/circulate/internal/database/reports"
	"github.com/openshelf/circulate/internal/database/users"
	httpcontrollers "github.com/openshelf/circulate/internal/http"
)

// Run builds the application from config and serves it until
// interrupted.
func Run(cfg *config.Config, version string) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	catalogRepo := catalog.NewRepository(db.DB)
	membersRepo := members.NewRepository(db.DB)
	ledgerRepo := ledger.NewRepository(db.DB, catalogRepo)
	reportsRepo := reports.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)

	routerCfg := httpcontrollers.RouterConfig{
		Books:        httpcontrollers.NewBooksController(catalogRepo),
		Members:      httpcontrollers.NewMembersController(membersRepo),
		Transactions: httpcontrollers.NewTransactionsController(ledgerRepo),
		Reports:      httpcontrollers.NewReportsController(reportsRepo, cfg.Reports),
		Health:       httpcontrollers.NewHealthController(db, version),
	}

	if cfg.Auth.Mode == config.AuthModeLocal {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL database handle: %v", err)
		}

		secret := cfg.Auth.SessionSecret
		if secret == "" {
			secret, err = auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate session secret: %v", err)
			}
			log.Printf("AUTH_SESSION_SECRET not set; generated an ephemeral secret (sessions reset on restart)")
		}

		sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to create session manager: %v", err)
		}

		routerCfg.SessionManager = sessionManager
		routerCfg.AuthMiddleware = auth.NewMiddleware(sessionManager, cfg.Auth)
		routerCfg.AuthHandlers = auth.NewHandlers(usersRepo, sessionManager, cfg.Auth)
		routerCfg.CSRFSecret = []byte(secret)
		routerCfg.SecureCookies = cfg.Auth.SecureCookies
	}

	router := httpcontrollers.NewRouter(routerCfg)
	Serve(router, cfg)
}

// Serve runs the HTTP server with graceful shutdown on SIGINT and
// SIGTERM.
func Serve(router *gin.Engine, cfg *config.Config) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
