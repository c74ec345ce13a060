package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"autoparts/catalog/internal/cache"
	"autoparts/catalog/internal/client"
	"autoparts/catalog/internal/config"
	"autoparts/catalog/internal/queue"
	"autoparts/catalog/internal/repository"
	"autoparts/catalog/internal/server"
	"autoparts/catalog/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.CatalogClient
	Repository repository.EquivalenceRepository
	Queue      queue.Queue
	Cache      cache.Cache

	Service *service.Service
	Server  *server.Server

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	container.db = db

	if err := db.Ping(ctx); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	log.Info("✅ Connected to Postgres successfully")

	if err := repository.Migrate(ctx, db); err != nil {
		container.Close()
		return nil, err
	}
	container.Repository = repository.NewEquivalenceRepository(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	container.redis = rdb

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Queue = redisQueue

	container.Cache = cache.NewRedisCache(rdb,
		time.Duration(cfg.Cache.CategoryTTL)*time.Second,
		time.Duration(cfg.Cache.FitmentTTL)*time.Second,
	)

	container.Client = client.NewCatalogClient(cfg.Catalog)

	container.Service = service.NewService(
		container.Repository,
		container.Client,
		container.Cache,
		container.Queue,
		service.Options{
			Equivalence:      cfg.Equivalence,
			DefaultCountryID: cfg.Catalog.DefaultCountryID,
			MinIdleTime:      time.Duration(cfg.Redis.MinIdleTime) * time.Second,
		},
	)

	container.Server = server.NewServer(cfg.Server, container.Service)

	return container, nil
}

// Run serves the HTTP API and the precompute workers until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Run(ctx)
	})

	if c.Config.Equivalence.Workers > 0 {
		g.Go(func() error {
			return c.Service.RunWorkers(ctx, c.Config.Equivalence.Workers)
		})
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
