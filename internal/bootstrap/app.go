package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"receiving-backend/internal/catalog"
	"receiving-backend/internal/entries"
	"receiving-backend/internal/extraction"
	"receiving-backend/internal/ledger"
	"receiving-backend/internal/queue"
	"receiving-backend/internal/shared/config"
	"receiving-backend/internal/shared/server"
	"receiving-backend/internal/shared/storage/db"
	"receiving-backend/internal/shared/storage/object"
	localstore "receiving-backend/internal/shared/storage/object/local"
	s3store "receiving-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the queue worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	EntriesStore   entries.Store
	CatalogLookup  catalog.Lookup
	Ledger         ledger.Ledger
	Extractor      extraction.Client
	Committer      *entries.Committer
	EntriesService *entries.Service
	EntriesHandler *entries.Handler
	CatalogHandler *catalog.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		EntriesHandler: app.EntriesHandler,
		CatalogHandler: app.CatalogHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.CommitRetryQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.EntriesStore = &entries.PGStore{DB: app.DB}
		app.CatalogLookup = &catalog.PGLookup{DB: app.DB}
		app.Ledger = &ledger.PGLedger{DB: app.DB}
	} else {
		app.EntriesStore = entries.NewMemoryStore()
		app.CatalogLookup = catalog.NewMemoryLookup()
		app.Ledger = ledger.NewMemoryLedger()
	}

	extractor := extraction.Client(extraction.PlaceholderClient{})
	if strings.TrimSpace(app.Config.ExtractionBaseURL) != "" {
		client, err := extraction.NewHTTPClient(extraction.HTTPOptions{
			BaseURL:      app.Config.ExtractionBaseURL,
			TokenURL:     app.Config.ExtractionTokenURL,
			ClientID:     app.Config.ExtractionClientID,
			ClientSecret: app.Config.ExtractionClientSecret,
			Timeout:      time.Duration(app.Config.ExtractionTimeoutSecs) * time.Second,
		})
		if err != nil {
			return err
		}
		extractor = client
	}
	app.Extractor = extractor

	var retries entries.RetryEnqueuer
	if app.Queue != nil {
		retries = &queue.RetryScheduler{Client: app.Queue}
	}

	app.Committer = entries.NewCommitter(app.EntriesStore, app.Ledger, retries, app.Config.CommitMaxLedgerAttempts)
	app.EntriesService = entries.NewService(
		app.EntriesStore,
		app.CatalogLookup,
		app.Extractor,
		app.Store,
		app.Committer,
		time.Duration(app.Config.ExtractionTimeoutSecs)*time.Second,
	)
	app.EntriesHandler = entries.NewHandler(app.EntriesService)
	app.CatalogHandler = catalog.NewHandler(app.CatalogLookup)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
