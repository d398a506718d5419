package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/database"
	"github.com/strategiq/swot/internal/middleware"
	"github.com/strategiq/swot/internal/modules/analysis"
	"github.com/strategiq/swot/internal/modules/history"
	"github.com/strategiq/swot/internal/modules/report"
	"github.com/strategiq/swot/internal/modules/site"
	pkgcron "github.com/strategiq/swot/internal/pkg/cron"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	pkgredis "github.com/strategiq/swot/internal/pkg/redis"
	"github.com/strategiq/swot/internal/pkg/runstore"
	"github.com/strategiq/swot/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
	site     *site.Handler
	history  *history.Service
	archiver *report.Archiver
}

// New wires the application: Redis, the optional history database, the
// analysis pipeline and the routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{cfg: cfg, logger: logger, cancel: cancel, sched: pkgcron.New(logger.Named("CronService"))}

	rc, err := pkgredis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.rc = rc

	if cfg.Database.Enable {
		db, err := database.Connect(cfg)
		if err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("database: %w", err)
		}
		app.db = db
		app.history = history.NewService(db)
	}

	sessions, err := session.NewManager(cfg.SecretKey, session.DefaultTTL)
	if err != nil {
		app.Shutdown()
		return nil, fmt.Errorf("session: %w", err)
	}

	siteOpts := site.Options{
		Runs: runstore.New(rc, runstore.DefaultTTL),
		Cache: pdfcache.New(pdfcache.Options{
			TTL:             cfg.PDFCacheTTL(),
			CleanupInterval: cfg.PDFCacheCleanupInterval(),
			Logger:          logger.Named("pdfcache"),
		}),
		Runner:       analysis.NewFromConfig(cfg, logger),
		Sessions:     sessions,
		Input:        cfg.Input,
		PDFTimeout:   cfg.PDFGenerationTimeout(),
		SecureCookie: !cfg.IsDev(),
		BaseContext:  ctx,
		Logger:       logger.Named("site"),
	}
	siteOpts.StatusDelay[0], siteOpts.StatusDelay[1] = cfg.StatusDelay()
	if app.history != nil {
		siteOpts.History = app.history
	}
	if cfg.Archive.Enable {
		archiver, err := report.NewArchiver(cfg.Archive.S3, logger.Named("archive"))
		if err != nil {
			logger.Warn("pdf archive disabled", zap.Error(err))
		} else {
			siteOpts.Archiver = archiver
			app.archiver = archiver
		}
	}
	app.site = site.NewHandler(siteOpts)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	app.router = gin.New()
	app.router.HandleMethodNotAllowed = true
	app.router.Use(gin.Recovery())
	app.router.Use(middleware.Logger(logger, "/status", "/api/health"))
	app.router.Use(newCORS(cfg))
	app.registerRoutes(sessions)

	registerCronJobs(app.sched, app.history, cfg, logger)
	app.sched.Start(ctx)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cancels background work, waits for in-flight analyses and report
// uploads to finish and closes the stores.
func (a *App) Shutdown() {
	a.cancel()
	if a.site != nil {
		a.site.Wait()
	}
	if a.archiver != nil {
		a.archiver.Wait()
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}
