package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"palmer/internal/hackathon"
	"palmer/internal/search"
	"palmer/pkg/database"
	"palmer/pkg/logging"
	"palmer/pkg/utils"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides PALMER_HTTP_ADDR)")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Must("info", "console").Fatal("load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("api server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg utils.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logging.GinMiddleware(log))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	idx := search.New()
	defer idx.Close()

	h := hackathon.NewHandler(hackathon.NewRepo(db), idx, log)
	h.SearchLimit = cfg.SearchLimit
	h.RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", zap.String("addr", cfg.HTTPAddr), zap.String("db_driver", db.Driver))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}
