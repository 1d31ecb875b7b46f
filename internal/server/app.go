// Package server initializes and runs the Rooftop API server.
// It opens the store, wires the services, handles graceful shutdown and
// runs the HTTP API next to the gRPC health endpoint.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/httpapi"
	"github.com/dmitrijs2005/rooftop/internal/server/notify"
	"github.com/dmitrijs2005/rooftop/internal/server/services"
	"github.com/dmitrijs2005/rooftop/internal/server/shared/db"
	"github.com/dmitrijs2005/rooftop/internal/server/shortcode"
	"github.com/dmitrijs2005/rooftop/internal/server/throttle"
	"github.com/dmitrijs2005/rooftop/internal/timex"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/rooftop/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *db.Handle
	redis  *redis.Client
	http   *httpapi.Server
	grpc   *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	clock := timex.SystemClock{}

	store, err := db.Open(ctx, c.DatabaseDSN, clock)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if store.Conn == nil {
		logger.Warn(ctx, "no database configured, using the in-memory store")
	}

	notifier, err := newNotifier(c, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store}

	var limiter services.Limiter
	if rc := throttle.NewRedisClient(c.RedisAddr, c.RedisPassword, c.RedisDB); rc != nil {
		app.redis = rc
		limiter = throttle.New(rc, c.EmailThrottleLimit, c.EmailThrottleWindow, logger)
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), clock)
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	sessions := services.NewSessionRegistry(store.Storage, issuer, clock, c.SessionInactivityWindow, logger)
	parties := services.NewPartyService(store.Storage, shortcode.NewGenerator(0), clock, logger)

	app.http = httpapi.NewServer(c, httpapi.Services{
		Users:    services.NewUserService(store.Storage, issuer, hasher, notifier, limiter, parties, c, logger),
		Auth:     services.NewAuthenticator(store.Storage, hasher, sessions, logger),
		Sessions: sessions,
		Parties:  parties,
		Issuer:   issuer,
	}, logger)

	var probe gs.Pinger
	if store.Conn != nil {
		probe = store.Conn
	}
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, probe, gs.DefaultProbeInterval)

	return app, nil
}

func newNotifier(c *config.Config, l logging.Logger) (notify.Notifier, error) {
	if c.SMTPHost == "" {
		return notify.NewLogNotifier(l), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.EmailSender,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// serve runs one server and brings the whole app down when it fails.
func (app *App) serve(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing database failed", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "closing redis failed", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
