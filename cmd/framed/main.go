package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/eleven-am/framed"
	"github.com/eleven-am/framed/internal/config"
	"github.com/eleven-am/framed/internal/server"
)

func main() {
	cfg := config.New()
	log := newLogger(cfg)

	for _, dir := range []string{cfg.FramesRoot, cfg.UploadsRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("create data directory")
		}
	}

	mgr := framed.New(framed.Options{
		FramesRoot:  cfg.FramesRoot,
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		JPEGQuality: cfg.JPEGQuality,
		MaxRestarts: cfg.MaxRestarts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
		StopGrace:   cfg.StopGrace,
		Logger:      &log,
	})

	accels := mgr.Accelerations(context.Background())
	log.Info().Interface("hardware_accelerations", accels).Msg("capability probe complete")

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(mgr, cfg.UploadsRoot, log).Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("framed listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	log.Info().Msg("framed exited")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
