package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/selmo/Tagdstiller-sub001/internal/config"
	"github.com/selmo/Tagdstiller-sub001/internal/queue"
	mid "github.com/selmo/Tagdstiller-sub001/internal/server/middleware"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init(cfg *config.Store) {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	// Without an auth service only the master API key can authenticate.
	var key *keyfunc.Keyfunc
	if cfg.Server.AuthURL != "" {
		k, err := keyfunc.NewDefault([]string{cfg.Server.AuthURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		key = &k
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := artifact.NewStore(cfg.ArtifactRoot)
	if err != nil {
		logger.Fatal("Failed to open artifact store", "err", err)
	}

	conn, err := queue.Init(cfg.Queue.URL())
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	if err := queue.SetupQueues(ch, []string{queue.AnalyzeQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	e.Use(mid.AppContextMiddleware(cfg, store, ch, key))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	RegisterRoutes(e)

	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port)
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
