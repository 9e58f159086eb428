package application

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/pairchat-go/internal/broker"
	"github.com/lk2023060901/pairchat-go/internal/gateway"
	"github.com/lk2023060901/pairchat-go/internal/json"
	"github.com/lk2023060901/pairchat-go/internal/network/acceptor"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/metrics"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Version 为构建版本，可通过 -ldflags "-X .../application.Version=x.y.z" 覆盖。
var Version = "0.1.0"

// Application is the runtime container of the pairchat service.
// It owns configuration, the broker and the transport, and drives their shutdown.
type Application struct {
	cfg     *Config
	version semver.Version

	registry *prometheus.Registry
	broker   *broker.Broker
	acceptor *acceptor.WSAcceptor
	mux      *http.ServeMux
	ln       net.Listener
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run is the entry of the pairchat process.
// It sets everything up from os.Args and serves until SIGINT or SIGTERM.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Setup(ctx, os.Args[1:]); err != nil {
		return err
	}
	return a.Serve(ctx)
}

// Setup loads configuration, initializes logging and metrics, builds the broker
// and the acceptor, and binds the listen address.
func (a *Application) Setup(ctx context.Context, args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	a.version, err = semver.Parse(Version)
	if err != nil {
		return errors.Wrapf(err, "invalid build version %q", Version)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(a.registry)

	a.broker = broker.New(cfg.BrokerOptions()...)
	gw, err := gateway.New(a.broker)
	if err != nil {
		return err
	}
	a.acceptor, err = acceptor.NewWSAcceptor(cfg.AcceptorConfig(), gw)
	if err != nil {
		return err
	}
	a.mux = a.newServeMux()

	a.ln, err = acceptor.Listen(ctx, cfg.Server.Addr, cfg.Server.ListenTimeout)
	if err != nil {
		_ = a.acceptor.Close()
		return errors.Wrapf(err, "listen on %s", cfg.Server.Addr)
	}

	log.Info("pairchat started",
		zap.String("version", a.version.String()),
		zap.String("addr", a.ln.Addr().String()),
		zap.String("mode", string(a.broker.Mode())),
		zap.String("path", cfg.Server.Path))
	return nil
}

// Serve blocks until ctx is canceled or the HTTP server fails, then shuts down:
// stop accepting, close every connection through the broker, release the acceptor, flush logs.
func (a *Application) Serve(ctx context.Context) error {
	if a.ln == nil {
		return merr.WrapErrServiceNotReady("not set up")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.acceptor.Serve(gctx, a.ln, a.mux)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("pairchat shutting down")
		a.broker.Shutdown()
		return a.acceptor.Close()
	})

	err := g.Wait()
	_ = log.Sync()
	return err
}

// Addr returns the bound listen address, nil before Setup.
func (a *Application) Addr() net.Addr {
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *Config {
	return a.cfg
}

func (a *Application) initLogging() error {
	logger, props, err := log.InitLogger(&a.cfg.Log)
	if err != nil {
		return errors.Wrap(err, "init global logger")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

func (a *Application) newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Server.MetricsPath, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version":     a.version.String(),
			"mode":        a.broker.Mode(),
			"connections": a.broker.Count(),
		})
	})
	return mux
}
