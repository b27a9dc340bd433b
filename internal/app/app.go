package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/db"
	"github.com/yungbote/cortex-backend/internal/http"
	"github.com/yungbote/cortex-backend/internal/jobs/daily"
	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients

	dbService    *db.Service
	otelShutdown func(context.Context) error
	scheduler    *daily.Scheduler
	cancel       context.CancelFunc
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// Core is the subset of the app the admin CLI needs: config, database,
// repositories and services, without the HTTP surface.
type Core struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients

	dbService *db.Service
}

func NewCore(log *logger.Logger) (*Core, error) {
	LoadEnvFiles(log)
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		_ = dbService.Close()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = dbService.Close()
		return nil, err
	}
	return &Core{
		Log:       log,
		DB:        theDB,
		Cfg:       cfg,
		Repos:     reposet,
		Services:  serviceset,
		Clients:   clientset,
		dbService: dbService,
	}, nil
}

func (c *Core) Close() {
	if c == nil {
		return
	}
	c.Clients.Close()
	if c.dbService != nil {
		_ = c.dbService.Close()
	}
}

func New() (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}
	core, err := NewCore(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: core.Cfg.Environment,
		Version:     core.Cfg.Version,
	})

	handlerset := wireHandlers(log, core.DB, core.Services)
	middleware := wireMiddleware(log, core.Services)
	router := wireRouter(log, core.Cfg, handlerset, middleware, core.Services)

	a := &App{
		Log:          log,
		DB:           core.DB,
		Server:       &http.Server{Engine: router},
		Cfg:          core.Cfg,
		Repos:        core.Repos,
		Services:     core.Services,
		Clients:      core.Clients,
		dbService:    core.dbService,
		otelShutdown: otelShutdown,
	}
	if core.Cfg.DailyTasksEnabled {
		a.scheduler = daily.NewScheduler(log, core.Services.Catalog)
	}
	return a, nil
}

// Start launches background work bound to the app lifetime.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// Daily task generation
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Shutdown drains in-flight requests, then stops background work.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var err error
	if a.Server != nil {
		err = a.Server.Shutdown(ctx)
	}
	a.Close()
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		if a.scheduler != nil {
			a.scheduler.Wait()
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	a.Clients.Close()
	a.Clients = Clients{}
	if a.dbService != nil {
		_ = a.dbService.Close()
		a.dbService = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
