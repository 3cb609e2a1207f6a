package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/shoprec/internal/config"
	"github.com/temcen/shoprec/internal/database"
	"github.com/temcen/shoprec/internal/handlers"
	"github.com/temcen/shoprec/internal/messaging"
	"github.com/temcen/shoprec/internal/middleware"
	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/internal/services"
	"github.com/temcen/shoprec/internal/store"
	"github.com/temcen/shoprec/internal/validation"
)

type App struct {
	config     *config.Config
	logger     *logrus.Logger
	db         *database.Database
	services   *services.Services
	handlers   *handlers.Handlers
	validation *middleware.ValidationMiddleware
	router     *gin.Engine
	publisher  *messaging.FeedbackPublisher
	consumer   *messaging.InteractionConsumer
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	products := store.NewProductStore(db.PG, app.logger)
	peers, graph := newPeerSource(cfg, db, app.logger)
	engine := recommender.NewEngine(
		products,
		store.NewInteractionStore(db.PG, app.logger),
		peers,
		cfg.Recommender(),
		app.logger,
	)

	deps := services.Deps{
		Engine:   engine,
		Catalog:  products,
		Cache:    services.NewRedisCache(db.Redis, app.logger),
		Checks:   healthChecks(db),
		Registry: prometheus.DefaultRegisterer,
		Redis:    db.Redis,
	}
	if cfg.Kafka.Enabled {
		app.publisher = messaging.NewFeedbackPublisher(cfg, app.logger)
		deps.Publisher = app.publisher
	}
	app.services = services.New(cfg, app.logger, deps)

	if cfg.Kafka.Enabled {
		var recorder interactionRecorder
		if graph != nil {
			recorder = graph
		}
		app.consumer = messaging.NewInteractionConsumer(
			cfg, validator, interactionHandler(app.services.Recommendation, recorder, app.logger), app.logger,
		)
	}

	app.handlers = handlers.New(app.logger, app.services)
	app.validation = middleware.NewValidationMiddleware(validator)
	app.setupRouter()

	return app, nil
}

// newPeerSource picks the configured peer backend and guards it with a
// circuit breaker. The graph store is returned separately when it is in use
// so consumed interactions can be mirrored into it.
func newPeerSource(cfg *config.Config, db *database.Database, logger *logrus.Logger) (recommender.PeerSource, *store.Neo4jPeerStore) {
	var (
		source recommender.PeerSource
		graph  *store.Neo4jPeerStore
	)
	switch cfg.Recommendation.PeerSource {
	case config.PeerSourceNeo4j:
		graph = store.NewNeo4jPeerStore(db.Neo4j, logger)
		source = graph
	default:
		source = store.NewPostgresPeerStore(db.PG, logger)
	}

	breaker := store.NewBreakerPeerSource(source, store.BreakerSettings{
		Name:        "peers-" + cfg.Recommendation.PeerSource,
		MaxFailures: cfg.Recommendation.Breaker.MaxFailures,
		Timeout:     cfg.Recommendation.Breaker.Timeout,
		Interval:    cfg.Recommendation.Breaker.Interval,
	}, logger)
	return breaker, graph
}

func healthChecks(db *database.Database) []services.HealthCheck {
	checks := []services.HealthCheck{
		{Name: "postgresql", Critical: true, Check: db.PG.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return db.Redis.Ping(ctx).Err() }},
	}
	if db.Neo4j != nil {
		checks = append(checks, services.HealthCheck{Name: "neo4j", Check: db.Neo4j.VerifyConnectivity})
	}
	return checks
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Run drives the background workers until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.services.Metrics.CollectPoolStats(ctx, a.db.PG, a.config.Monitoring.PoolStatsInterval)
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			err := a.consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	var errs []error
	if a.consumer != nil {
		errs = append(errs, a.consumer.Close())
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.db.Close())

	if err := errors.Join(errs...); err != nil {
		a.logger.WithError(err).Error("Error closing connections")
		return err
	}
	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config.Security.CORS))

	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	h := a.handlers.Recommendation

	public := router.Group("/api/v1/recommendations")
	private := router.Group("/api/v1/recommendations", middleware.Auth(a.services.Auth, a.logger))
	if a.services.RateLimit != nil {
		public.Use(middleware.RateLimit(a.services.RateLimit))
		private.Use(middleware.RateLimit(a.services.RateLimit))
	}

	public.GET("/similar/:productId", h.Similar)
	public.GET("/trending", h.Trending)
	public.GET("/category/:category", h.Category)
	public.GET("/popular", h.Popular)

	private.GET("/personalized", h.Personalized)
	private.POST("/feedback", a.validation.ValidateFeedback(), h.Feedback)
	private.GET("/stats", h.Stats)
	private.GET("/user-profile", h.UserProfile)

	a.router = router
}
