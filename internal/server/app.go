// Package server wires the contact book together: storage, services, the
// mail queue, optional rate limiting and the HTTP API, and runs them until
// a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/avatars"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/httpapi"
	"github.com/dmitrijs2005/contactbook/internal/server/mailer"
	"github.com/dmitrijs2005/contactbook/internal/server/ratelimit"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// MemoryDSN selects the in-memory store instead of PostgreSQL.
const MemoryDSN = "memory://"

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	mailQueue *mailer.Queue
	handler   http.Handler
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

type storage struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tx          dbx.TxRunner
}

func openStorage(ctx context.Context, dsn string) (*storage, error) {
	if dsn == MemoryDSN {
		return &storage{repomanager: repomanager.NewMemoryRepositoryManager(), tx: dbx.NopRunner{}}, nil
	}

	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &storage{db: db, repomanager: rm, tx: dbx.NewSQLRunner(db)}, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	tokens, err := auth.NewTokenManager(c)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	st, err := openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: st.db}

	images, err := avatars.NewS3Host(ctx, c)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("image host: %w", err)
	}

	deps := httpapi.Deps{Logger: logger}
	if st.db != nil {
		deps.DB = st.db
	}

	if c.RedisAddr != "" {
		app.redis, err = ratelimit.NewClient(ctx, c.RedisAddr)
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		deps.Limiter = ratelimit.NewLimiter(app.redis, "contacts", c.RateLimitRequests, c.RateLimitWindow)
	}

	app.mailQueue = mailer.NewQueue(mailer.NewSMTPSender(c), c.MailWorkers, c.MailQueueSize, logger)

	v := validation.New()
	deps.Auth = services.NewAuthService(st.tx, st.repomanager, tokens, app.mailQueue, v, c, logger)
	deps.Contacts = services.NewContactService(st.tx, st.repomanager, images, v, logger)
	app.handler = httpapi.NewRouter(deps)

	return app, nil
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

// Run serves HTTP and delivers mail until a signal arrives or one of them
// fails, then releases the database and Redis connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	err := serveThenStopMail(ctx,
		httpapi.NewServer(app.config.HTTPAddr, app.handler, app.logger).Run,
		app.mailQueue.Run)
	app.close(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "app stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}

// serveThenStopMail runs serve and mail together. The mail context is only
// cancelled after serve has returned, so messages enqueued by requests that
// finish during the HTTP shutdown are still delivered.
func serveThenStopMail(ctx context.Context, serve, mail func(context.Context) error) error {
	mailCtx, stopMail := context.WithCancel(context.WithoutCancel(ctx))
	defer stopMail()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopMail()
		return serve(gctx)
	})
	g.Go(func() error {
		return mail(mailCtx)
	})
	return g.Wait()
}

func (app *App) close(ctx context.Context) {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
}
