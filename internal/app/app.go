package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/db"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Notifier bus.Notifier
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	var notifier bus.Notifier = bus.NoopNotifier{}
	if cfg.RealtimeBusEnabled {
		redisBus, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis bus unavailable, events disabled", "error", err)
		} else {
			notifier = redisBus
		}
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, notifier)
	handlerset := wireHandlers(theDB, log, reposet, serviceset)
	router := wireRouter(cfg, handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Notifier: notifier,
	}, nil
}

// Start launches background workers. Call once before Run.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.MediaWorker != nil {
		a.Services.MediaWorker.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.HTTPAddr
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.MediaWorker != nil {
		a.Services.MediaWorker.Close()
	}
	if a.Notifier != nil {
		if err := a.Notifier.Close(); err != nil {
			a.Log.Warn("Notifier close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
