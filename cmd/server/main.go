package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"todo-api/internal/cache"
	"todo-api/internal/config"
	"todo-api/internal/database"
	"todo-api/internal/handlers"
	"todo-api/internal/middleware"
	"todo-api/internal/monitoring"
	"todo-api/internal/repositories"
	"todo-api/internal/services"
	"todo-api/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/logger"
)

type application struct {
	config      *config.Config
	router      *gin.Engine
	todoService services.TodoService
	db          *database.DatabasePool
	redis       *redis.Client
	worker      *worker.Worker
	rateLimiter *middleware.RateLimiter
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	app.start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (store=%s cache=%v worker=%v)",
			httpServer.Addr, cfg.Store.Backend, cfg.Cache.Enabled, cfg.Worker.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{config: cfg}

	store, err := app.openStore()
	if err != nil {
		app.close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		app.redis = cache.NewRedisClient(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	}

	var todoService services.TodoService = store

	if cfg.Worker.Enabled {
		todoService = services.NewEventingTodoService(store, worker.NewJobQueue(app.redis), cfg.Worker.Queue)

		app.worker = worker.NewWorker(worker.WorkerConfig{
			RedisClient:  app.redis,
			PollInterval: cfg.Worker.PollInterval,
			Queues:       []string{cfg.Worker.Queue},
		})
		registerEventHandlers(app.worker)
	}

	if cfg.Cache.Enabled {
		var l2 *cache.RedisCache
		if app.redis != nil {
			l2 = cache.NewRedisCache(app.redis, cache.DefaultCacheConfig().KeyPrefix, nil)
		}
		cached := services.NewCachedTodoService(todoService, cache.NewMultiLevelCache(l2), cfg.Cache.ItemTTL, cfg.Cache.ListTTL)
		if err := cached.Warm(ctx); err != nil {
			log.Printf("Cache warming failed: %v", err)
		}
		todoService = cached
	}
	app.todoService = todoService

	checker := monitoring.NewHealthChecker()
	checker.Register("store", func(ctx context.Context) error {
		_, err := store.List(ctx)
		return err
	})
	if app.db != nil {
		checker.Register("database", app.db.Health)
	}
	if app.redis != nil {
		checker.Register("redis", func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		})
	}

	if cfg.RateLimit.Enabled {
		app.rateLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMin:  cfg.RateLimit.RequestsPerMin,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		})
	}

	app.router = handlers.NewRouter(handlers.RouterConfig{
		TodoService:    todoService,
		Metrics:        monitoring.NewMetrics(),
		HealthChecker:  checker,
		RateLimiter:    app.rateLimiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return app, nil
}

func (app *application) openStore() (services.TodoStore, error) {
	cfg := app.config
	if cfg.Store.Backend == config.StoreMemory {
		return services.NewMemoryTodoService(nil), nil
	}

	logLevel := logger.Warn
	if cfg.IsProduction() {
		logLevel = logger.Silent
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Store.Backend,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, err
	}
	app.db = pool

	repo, err := repositories.NewTodoRepository(pool.DB, nil)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// start launches the background goroutines; they stop when ctx is done.
func (app *application) start(ctx context.Context) {
	if app.worker != nil {
		app.worker.Start(ctx, app.config.Worker.Concurrency)
	}
	if app.rateLimiter != nil {
		go app.rateLimiter.Run(ctx)
	}
}

func (app *application) close() {
	if app.worker != nil {
		app.worker.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			log.Printf("Failed to close Redis client: %v", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}

func registerEventHandlers(w *worker.Worker) {
	logEvent := func(ctx context.Context, job *worker.Job) error {
		log.Printf("todo event: type=%s job=%s id=%v payload=%v", job.Type, job.ID, job.Payload["id"], job.Payload)
		return nil
	}

	for _, jobType := range []worker.JobType{
		worker.JobTypeTodoCreated,
		worker.JobTypeTodoCompleted,
		worker.JobTypeTodoReopened,
		worker.JobTypeTodoDeleted,
	} {
		w.RegisterHandler(jobType, logEvent)
	}
}
