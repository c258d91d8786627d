package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dtroode/zeitnachricht/internal/api/backend"
	"github.com/dtroode/zeitnachricht/internal/api/rest"
	"github.com/dtroode/zeitnachricht/internal/config"
	"github.com/dtroode/zeitnachricht/internal/i18n"
	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/repository/postgres"
	"github.com/dtroode/zeitnachricht/internal/service"
	"github.com/dtroode/zeitnachricht/internal/storage/file"
	storage "github.com/dtroode/zeitnachricht/internal/storage/minio"
	"github.com/dtroode/zeitnachricht/internal/view"
)

// app wires the client components for one command invocation.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	out    io.Writer
	now    func() time.Time

	closeState func() error

	rest    *rest.Client
	api     *backend.Client
	session *service.Session
	router  *view.Router
	tr      *i18n.Translator
}

// openState opens the configured persisted state backend.
func openState(ctx context.Context, cfg *config.Config) (model.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.State.Backend {
	case config.StateBackendPostgres:
		conn, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to state database: %w", err)
		}
		return postgres.NewStateRepository(conn, cfg.State.Profile), conn.Close, nil
	case config.StateBackendMinio:
		store, err := storage.Connect(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to state bucket: %w", err)
		}
		return store, noop, nil
	default:
		return file.NewStore(cfg.State.FilePath), noop, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *logger.Logger, out io.Writer) (*app, error) {
	store, closeState, err := openState(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := newAppWithStore(ctx, cfg, store, logger, out)
	if err != nil {
		closeState()
		return nil, err
	}
	a.closeState = closeState
	return a, nil
}

// newAppWithStore restores the session from store. The router is created
// first so it observes the restore.
func newAppWithStore(ctx context.Context, cfg *config.Config, store model.StateStore, logger *logger.Logger, out io.Writer) (*app, error) {
	tr, err := i18n.NewTranslator(store, logger, i18n.WithDefaultLanguage(cfg.DefaultLanguage))
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	tr.Load(ctx)

	restClient := rest.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout}, logger)
	api := backend.New(restClient)
	session := service.NewSession(api, restClient, store, logger)
	router := view.NewRouter(session, logger)
	session.Initialize(ctx)

	return &app{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		now:        time.Now,
		closeState: func() error { return nil },
		rest:       restClient,
		api:        api,
		session:    session,
		router:     router,
		tr:         tr,
	}, nil
}

func (a *app) close() {
	a.router.Close()
	if err := a.closeState(); err != nil {
		a.logger.Warn("Client: failed to close state store",
			"error", err.Error())
	}
}

func (a *app) dashboard(opts ...service.DashboardOption) *service.Dashboard {
	opts = append([]service.DashboardOption{service.WithClock(a.now)}, opts...)
	return service.NewDashboard(a.api, a.session, a.cfg.Sync.Interval, a.logger, opts...)
}

func (a *app) requireAuth() error {
	if a.router.State() != view.StateAuthenticated {
		return model.ErrNotAuthenticated
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
