package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	natsio "github.com/nats-io/nats.go"

	"github.com/construo/opsportal/internal/config"
	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
	"github.com/construo/opsportal/internal/core/usecase"
	activitynats "github.com/construo/opsportal/internal/infrastructure/activity/nats"
	"github.com/construo/opsportal/internal/infrastructure/repository/postgres"
	"github.com/construo/opsportal/internal/infrastructure/resilience"
	"github.com/construo/opsportal/internal/infrastructure/storage/localfs"
)

// App wires the compliance core to its adapters. Both binaries share it: the
// API consumes the services, the worker consumes the consumer and store.
type App struct {
	Config    config.Config
	Checklist domain.Checklist

	StartupFolders ports.StartupFolderService
	Documents      ports.DocumentService
	Linking        ports.LinkingService
	Reporter       ports.ComplianceReporter
	Sweeper        ports.ExpirationSweeper
	Blobs          ports.BlobStorage

	ActivityConsumer *activitynats.Consumer
	ActivityStore    ports.ActivityStore

	DB       *sql.DB
	natsConn *natsio.Conn
}

func New(ctx context.Context, cfg config.Config, authz ports.Authorizer, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	checklist, err := config.LoadChecklist(cfg.ChecklistPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	blobs, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	conn, err := activitynats.Connect(cfg.NATSURL, activitynats.Options{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect activity broker: %w", err)
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	recorder := activitynats.NewRecorder(conn, cfg.NATSSubject, executor, logger)

	return &App{
		Config:    cfg,
		Checklist: checklist,

		StartupFolders: usecase.NewStartupFolderUseCase(store, authz, recorder, blobs, checklist, cfg.SeedPlaceholderDocuments),
		Documents:      usecase.NewDocumentUseCase(store, authz, recorder, blobs),
		Linking:        usecase.NewLinkingUseCase(store, authz, recorder, blobs),
		Reporter:       usecase.NewReportUseCase(store, authz, checklist),
		Sweeper:        usecase.NewSweepUseCase(store),
		Blobs:          blobs,

		ActivityConsumer: activitynats.NewConsumer(conn, cfg.NATSSubject, logger),
		ActivityStore:    postgres.NewActivityRepository(db),

		DB:       db,
		natsConn: conn,
	}, nil
}

func (a *App) Close() {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
