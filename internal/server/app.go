// Package server wires configuration, storage, the session service and the
// HTTP and gRPC listeners into one runnable application.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/tokenkeeper/internal/server/grpc"
)

// openDB is replaced in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	rdb     redis.UniversalClient
	repos   repomanager.RepositoryManager
	encoder *auth.Encoder
	service *services.SessionService
	closers []func() error
}

func NewApp(c *config.Config) (*App, error) {
	logger, syncFn, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if syncFn != nil {
		app.closers = append(app.closers, syncFn)
	}

	if err := app.initStorage(); err != nil {
		_ = app.close()
		return nil, err
	}

	var tx dbx.Transactor = dbx.NopTransactor{}
	if app.db != nil {
		tx = dbx.NewSQLTransactor(app.db)
	}

	app.encoder = auth.NewEncoder([]byte(c.SecretKey), c.Issuer, c.Audience)
	app.service, err = services.NewSessionService(tx, app.repos, app.encoder, c, logger.With("module", "session"))
	if err != nil {
		_ = app.close()
		return nil, fmt.Errorf("session service init error: %w", err)
	}

	return app, nil
}

func newLogger(c *config.Config) (logging.Logger, func() error, error) {
	switch c.LogFormat {
	case config.LogFormatZap:
		z, err := logging.NewProductionZap(c.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		l := logging.NewZapLogger(z)
		// stdout sync fails on some terminals
		return l, func() error { _ = l.Sync(); return nil }, nil
	default:
		l, err := logging.NewJSONSlog(os.Stdout, c.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	}
}

func (app *App) initStorage() error {
	c := app.config

	if c.Storage == config.StorageMemory {
		app.repos = repomanager.NewMemoryRepositoryManager()
		return nil
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	if c.Storage == config.StorageRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		app.rdb = rdb
		app.closers = append(app.closers, rdb.Close)
		app.repos = repomanager.NewRedisRepositoryManager(rdb)
		return nil
	}

	app.repos = repomanager.NewPostgresRepositoryManager()
	return nil
}

// probe checks every storage backend the app depends on.
func (app *App) probe(ctx context.Context) error {
	if app.db != nil {
		if err := app.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if app.rdb != nil {
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (app *App) close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.service, app.encoder, app.probe)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.probe, 0)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run applies migrations, serves until ctx is cancelled or a termination
// signal arrives, then releases storage.
func (app *App) Run(ctx context.Context) error {
	defer func() {
		if err := app.close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	if app.db != nil {
		if err := app.repos.RunMigrations(ctx, app.db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
