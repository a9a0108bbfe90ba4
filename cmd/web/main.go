package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"care-assess/internal/helper"
	"care-assess/internal/logger"
	"care-assess/internal/pipeline"
	"care-assess/internal/store"
)

// server holds what the handlers share
type server struct {
	store           *store.Store
	orch            *pipeline.Orchestrator
	log             *logger.Logger
	defaultTemplate string
}

func newRouter(srv *server, sessionKey string) *gin.Engine {
	app := gin.New()
	app.Use(gin.Recovery())
	app.Use(srv.log.Middleware())

	// Enable cookie session
	sessionStore := cookie.NewStore([]byte(sessionKey))
	app.Use(sessions.Sessions("care-assess-session", sessionStore))

	// Initialize the routes
	srv.initializeRoutes(app)
	return app
}

func main() {
	log := logger.New()

	// Set Gin to production mode
	if env := helper.GetConfig("ENVIRONMENT"); env != "" && env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the database
	db, err := helper.ConnectDB()
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	if err := os.MkdirAll(helper.DataDir(), 0o755); err != nil {
		log.WithError(err).Fatal("cannot create data directory")
	}

	s := store.New(db)
	srv := &server{
		store:           s,
		orch:            pipeline.NewFromConfig(s, log.WithField("component", "pipeline")),
		log:             log,
		defaultTemplate: pipeline.DefaultTemplate(),
	}
	if err := srv.seedAdmin(context.Background(), helper.GetConfig("ADMIN_EMAIL"), helper.GetConfig("ADMIN_PASSWORD")); err != nil {
		log.WithError(err).Fatal("cannot seed admin user")
	}

	sessionKey := helper.GetConfig("SESSION_KEY")
	if sessionKey == "" {
		log.Warn("SESSION_KEY is not set, sessions will not survive a restart")
		sessionKey = helper.RandomKey()
	}

	httpServer := &http.Server{
		Addr:              ":" + helper.GetConfigOr("PORT", "8080"),
		Handler:           newRouter(srv, sessionKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("http shutdown")
	}

	// Let running pipelines finish, the recovery worker handles the rest
	// after a hard kill.
	srv.orch.Wait()
	log.Info("all pipelines finished")
}
