package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/usecase"
	pkgch "TwQuant/pkg/clickhouse"
	"TwQuant/pkg/config"
	xhttp "TwQuant/pkg/http"
	pkgkafka "TwQuant/pkg/kafka"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

// JobQueue is the background queue lifecycle the app manages.
type JobQueue interface {
	Start() error
	Stop(ctx context.Context) error
}

// Deps holds everything the application lifecycle owns or supervises.
// Consumer and SnapshotHandler are nil unless the ingest backend is
// kafka; Queue and Publisher may be nil.
type Deps struct {
	Config          *config.Config
	Logger          *applogger.Logger
	Handler         xhttp.Handler
	Ingest          *usecase.IngestUseCase
	Consumer        *pkgkafka.Consumer
	SnapshotHandler *usecase.KafkaSnapshotHandler
	Queue           JobQueue
	BarStore        domrepo.BarStore
	MarketStore     domrepo.MarketStore
	CH              *pkgch.Client
	Publisher       domrepo.Publisher
}

// App encapsulates the entire application lifecycle.
type App struct {
	d          Deps
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	return &App{d: d}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, l := a.d.Config, a.d.Logger

	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	defer initCancel()
	if err := a.d.BarStore.Init(initCtx); err != nil {
		l.Error("bar store init error", applogger.Error(err))
		return err
	}
	if err := a.d.MarketStore.Init(initCtx); err != nil {
		l.Error("market store init error", applogger.Error(err))
		return err
	}
	l.Info("clickhouse schema ready", applogger.String("database", cfg.ClickHouse.Database))

	a.httpServer = xhttp.NewServer(a.d.Handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)

	// Kafka consumer path: snapshots published by RunDaily land in
	// ClickHouse through the snapshot pipeline.
	if a.d.Consumer != nil && a.d.SnapshotHandler != nil {
		a.d.SnapshotHandler.Start(ctx)
		a.d.Consumer.RegisterHandler(a.d.SnapshotHandler)
		go func() {
			if err := a.d.Consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.d.SnapshotHandler.Topic()))
	}

	if a.d.Queue != nil {
		if err := a.d.Queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		l.Info("sweep queue started")
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", cfg.Server.Port))

	if cfg.Ingest.Schedule != "" && a.d.Ingest != nil {
		go a.runScheduler(ctx)
		l.Info("daily ingest scheduled",
			applogger.String("at", cfg.Ingest.Schedule),
			applogger.Strings("symbols", cfg.Ingest.Symbols))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// runScheduler fires the daily ingest at the configured Taipei wall
// time, every day including holidays; holiday runs walk back to the
// last published session and the stores deduplicate.
func (a *App) runScheduler(ctx context.Context) {
	l := a.d.Logger
	at, err := time.Parse("15:04", a.d.Config.Ingest.Schedule)
	if err != nil {
		l.Error("bad ingest schedule", applogger.String("schedule", a.d.Config.Ingest.Schedule), applogger.Error(err))
		return
	}

	for {
		now := time.Now().In(util.Taipei)
		next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, util.Taipei)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		snap, err := a.d.Ingest.RunDaily(runCtx)
		cancel()
		if errors.Is(err, usecase.ErrIngestRunning) {
			l.Info("scheduled ingest skipped, another node holds the lock")
			continue
		}
		if err != nil {
			l.Error("scheduled ingest failed", applogger.Error(err))
			continue
		}
		l.Info("scheduled ingest done", applogger.String("session", snap.Date.Format("2006-01-02")))
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.d.Logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.d.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.d.Consumer != nil {
		if err := a.d.Consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.d.SnapshotHandler != nil {
		a.d.SnapshotHandler.Stop()
	}

	if a.d.Queue != nil {
		if err := a.d.Queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.d.Publisher != nil {
		if err := a.d.Publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if err := a.d.BarStore.Close(); err != nil {
		l.Warn("bar store close error", applogger.Error(err))
	}
	if err := a.d.MarketStore.Close(); err != nil {
		l.Warn("market store close error", applogger.Error(err))
	}
	if a.d.CH != nil {
		if err := a.d.CH.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
