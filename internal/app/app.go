package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/handlers"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/services/assigner"
	"github.com/ternarybob/fury/internal/services/classifier"
	"github.com/ternarybob/fury/internal/services/discovery"
	"github.com/ternarybob/fury/internal/services/events"
	"github.com/ternarybob/fury/internal/services/exporter"
	"github.com/ternarybob/fury/internal/services/fetcher"
	"github.com/ternarybob/fury/internal/services/importer"
	"github.com/ternarybob/fury/internal/services/llm"
	"github.com/ternarybob/fury/internal/services/scheduler"
	badgerstore "github.com/ternarybob/fury/internal/storage/badger"
	"github.com/ternarybob/fury/internal/storage/sqlite"
	"github.com/ternarybob/fury/internal/taxonomy"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	StorageManager interfaces.StorageManager
	MetadataCache  interfaces.MetadataCache
	Taxonomy       *taxonomy.Taxonomy

	// Services
	EventService     interfaces.EventService
	LLMService       interfaces.LLMService
	FetcherService   interfaces.FetcherService
	Classifier       *classifier.Classifier
	DiscoveryService interfaces.DiscoveryService
	AssignerService  interfaces.AssignerService
	ExportService    interfaces.ExportService
	ImportService    interfaces.ImportService
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	ImportHandler   *handlers.ImportHandler
	AnalyzeHandler  *handlers.AnalyzeHandler
	CategoryHandler *handlers.CategoryHandler
	BookmarkHandler *handlers.BookmarkHandler
	SessionHandler  *handlers.SessionHandler
	ExportHandler   *handlers.ExportHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler

	wsWriter   *handlers.WebSocketWriter
	logChannel chan []arbormodels.LogEvent
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// WebSocket handler is created before the other services so log
	// streaming covers the rest of startup.
	app.EventService = events.NewService(app.Logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, app.Logger)

	if err := app.initLogStreaming(); err != nil {
		return nil, fmt.Errorf("failed to initialize log streaming: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.SchedulerService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("llm_provider", app.LLMService.Provider()).
		Bool("llm_available", app.LLMService.Available()).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage brings up the SQLite store, the Badger metadata cache and
// the taxonomy definitions.
func (a *App) initStorage() error {
	tax, err := taxonomy.LoadTaxonomy("")
	if err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}
	a.Taxonomy = tax

	presets, err := taxonomy.LoadPresets("")
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	storageManager, err := sqlite.NewManager(a.Logger, &a.Config.Storage.SQLite, presets)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "sqlite").
		Str("path", a.Config.Storage.SQLite.Path).
		Msg("Storage layer initialized")

	// Seed the built-in taxonomy roots into an empty store so the first
	// import classifies against a populated category list.
	if err := storageManager.CategoryStorage().EnsureDefaults(context.Background()); err != nil {
		return fmt.Errorf("failed to seed default categories: %w", err)
	}

	badgerDB, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open metadata cache: %w", err)
	}
	a.MetadataCache = badgerstore.NewMetadataCache(badgerDB, a.Config.Fetcher.CacheTTL, a.Logger)
	a.Logger.Debug().
		Str("path", a.Config.Storage.Badger.Path).
		Dur("ttl", a.Config.Fetcher.CacheTTL).
		Msg("Metadata cache initialized")

	return nil
}

// initLogStreaming routes log batches from arbor onto the WebSocket
// writer, which filters by level and pattern before broadcasting.
func (a *App) initLogStreaming() error {
	wsWriter, err := handlers.NewWebSocketWriter(a.WSHandler, arbormodels.WriterConfiguration{
		TimeFormat: "15:04:05",
	}, &a.Config.WebSocket)
	if err != nil {
		return err
	}
	a.wsWriter = wsWriter

	a.logChannel = make(chan []arbormodels.LogEvent, 100)
	a.Logger.SetChannel("websocket", a.logChannel)

	common.SafeGo(a.Logger, "logStreaming", func() {
		for batch := range a.logChannel {
			for _, entry := range batch {
				if data, err := json.Marshal(entry); err == nil {
					wsWriter.Write(data)
				}
			}
		}
	})

	return nil
}

// initServices initializes the business services in dependency order:
// LLM first, then the enrichment and taxonomy services, then the import
// pipeline that consumes them all.
func (a *App) initServices() error {
	a.LLMService = llm.NewLLMService(a.Config, a.Logger)

	a.FetcherService = fetcher.NewService(&a.Config.Fetcher, a.MetadataCache, a.Logger)
	a.Classifier = classifier.New(a.Taxonomy, a.Logger)
	a.DiscoveryService = discovery.NewService(a.LLMService, a.Taxonomy, a.Logger)
	a.AssignerService = assigner.NewService(a.LLMService, a.Logger)
	a.ExportService = exporter.NewService(a.StorageManager, a.Logger)

	a.ImportService = importer.NewService(
		&a.Config.Importer,
		a.StorageManager,
		a.FetcherService,
		a.Classifier,
		a.AssignerService,
		a.EventService,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(&a.Config.Scheduler, a.StorageManager, a.Logger)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.ImportHandler = handlers.NewImportHandler(a.ImportService, &a.Config.Importer, a.Logger)
	a.AnalyzeHandler = handlers.NewAnalyzeHandler(a.DiscoveryService, a.Logger)
	a.CategoryHandler = handlers.NewCategoryHandler(a.StorageManager, a.EventService, a.Logger)
	a.BookmarkHandler = handlers.NewBookmarkHandler(a.StorageManager, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.StorageManager, a.Logger)
	a.ExportHandler = handlers.NewExportHandler(a.ExportService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StorageManager, a.LLMService, a.SchedulerService, a.Logger)
}

// Close releases application resources in reverse initialization order.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.logChannel != nil {
		close(a.logChannel)
	}
	if a.wsWriter != nil {
		if err := a.wsWriter.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket log writer")
		}
	}

	// MetadataCache.Close also closes the underlying Badger connection.
	if a.MetadataCache != nil {
		if err := a.MetadataCache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close metadata cache")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
