package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "BinPulse/internal/middleware"
	"BinPulse/internal/service/ratelimit"
	"BinPulse/internal/usecase"
	"BinPulse/pkg/cache"
	pkgch "BinPulse/pkg/clickhouse"
	"BinPulse/pkg/config"
	xhttp "BinPulse/pkg/http"
	pkgkafka "BinPulse/pkg/kafka"
	applogger "BinPulse/pkg/logger"
	pkgmqtt "BinPulse/pkg/mqtt"
	"BinPulse/pkg/queue"
)

const limiterPruneEvery = time.Minute

// Lifetime is the root context of background work started by the app.
type Lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLifetime() *Lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifetime{ctx: ctx, cancel: cancel}
}

func (l *Lifetime) Context() context.Context { return l.ctx }

func (l *Lifetime) Cancel() { l.cancel() }

// Deps are the components App starts and stops. Optional ones may be nil.
type Deps struct {
	Lifetime   *Lifetime
	Logger     *applogger.Logger
	HTTP       *xhttp.Server
	Scheduler  *usecase.Scheduler
	Limiter    *ratelimit.Limiter
	Seed       func(context.Context) error
	Cache      cache.Service
	Events     *usecase.EventProcessor
	Telemetry  *mid.TelemetryPipeline
	Queue      *queue.RedisQueue
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	MQTT       *pkgmqtt.Client
	ClickHouse *pkgch.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	d   Deps
	l   *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, d Deps) *App {
	if d.Logger == nil {
		d.Logger = applogger.Nop()
	}
	if d.Lifetime == nil {
		d.Lifetime = NewLifetime()
	}
	return &App{cfg: cfg, d: d, l: d.Logger}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx := a.d.Lifetime.Context()
	l := a.l

	if a.d.Seed != nil {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := a.d.Seed(seedCtx)
		cancel()
		if err != nil {
			l.Warn("demo seed failed", applogger.Error(err))
		}
	}

	if a.d.Limiter != nil {
		go a.d.Limiter.RunPruner(ctx, limiterPruneEvery)
	}

	if a.d.Telemetry != nil {
		a.d.Telemetry.Start(ctx)
		l.Info("telemetry pipeline started", applogger.String("broker", a.cfg.MQTT.Broker))
	}

	if a.d.Queue != nil {
		if err := a.d.Queue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	if a.d.Consumer != nil && a.d.Handler != nil {
		a.d.Consumer.RegisterHandler(a.d.Handler)
		if err := a.d.Consumer.Start(); err != nil {
			l.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		l.Info("kafka consumer started", applogger.String("topic", a.d.Handler.Topic()))
	}

	if err := a.d.HTTP.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.cfg.Simulation.AutoStart {
		a.d.Scheduler.Start(ctx)
	}
	l.Info("binpulse started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.String("history_sink", a.cfg.History.Sink),
		applogger.Bool("scheduler", a.cfg.Simulation.AutoStart),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		l.Info("shutdown signal received")
	case <-ctx.Done():
	}
	return a.shutdown()
}

// shutdown stops producers of work first, then sinks, then clients.
func (a *App) shutdown() error {
	l := a.l
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.d.Scheduler.Stop()
	a.d.Scheduler.Wait()
	a.d.Lifetime.Cancel()

	if err := a.d.HTTP.Stop(ctx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.d.Consumer != nil {
		if err := a.d.Consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.d.Queue != nil {
		if err := a.d.Queue.Stop(ctx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}
	if a.d.Telemetry != nil {
		a.d.Telemetry.Stop()
	}
	if a.d.MQTT != nil {
		a.d.MQTT.Close()
	}

	// collector publishes through the producer the processor closes
	l.RemoveCollector()
	if a.d.Events != nil {
		a.d.Events.Close()
	}
	if a.d.ClickHouse != nil {
		if err := a.d.ClickHouse.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if c, ok := a.d.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
