package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/yourusername/taskdock/internal/audit"
	"github.com/yourusername/taskdock/internal/auth"
	"github.com/yourusername/taskdock/internal/config"
	"github.com/yourusername/taskdock/internal/jobs"
	"github.com/yourusername/taskdock/internal/logging"
	"github.com/yourusername/taskdock/internal/middleware"
	"github.com/yourusername/taskdock/internal/tasks"
	"github.com/yourusername/taskdock/internal/users"
)

// dependencies は設定から組み立てた外部リソースです。
type dependencies struct {
	users       users.Store
	tasks       tasks.Store
	denylist    auth.Denylist
	audit       audit.Publisher
	rateLimiter gin.HandlerFunc

	closers []func(ctx context.Context) error
}

func setupDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	if err := deps.setupStores(ctx, cfg, log); err != nil {
		deps.Close(log)
		return nil, err
	}
	if err := deps.setupRedis(ctx, cfg, log); err != nil {
		deps.Close(log)
		return nil, err
	}

	if err := deps.setupAudit(cfg, log); err != nil {
		deps.Close(log)
		return nil, err
	}

	return deps, nil
}

// setupAudit は監査イベントの送出先を選びます。
// Kafka と Redis の両方があれば Asynq のキュー経由で配送します。
func (d *dependencies) setupAudit(cfg *config.Config, log *slog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		d.audit = audit.Nop{}
		return nil
	}

	kafkaPublisher := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if cfg.RedisURL == "" {
		d.audit = kafkaPublisher
		d.closers = append(d.closers, func(context.Context) error { return kafkaPublisher.Close() })
		log.Info("audit events enabled", "topic", cfg.KafkaAuditTopic, "delivery", "direct")
		return nil
	}

	manager, err := jobs.NewManager(cfg.RedisURL, kafkaPublisher, log)
	if err != nil {
		_ = kafkaPublisher.Close()
		return err
	}
	if err := manager.StartWorkers(); err != nil {
		_ = manager.Close()
		return fmt.Errorf("failed to start audit workers: %w", err)
	}
	d.audit = manager
	d.closers = append(d.closers, func(context.Context) error { return manager.Close() })
	log.Info("audit events enabled", "topic", cfg.KafkaAuditTopic, "delivery", "queued")
	return nil
}

func (d *dependencies) setupStores(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory stores; data is lost on restart")
		d.users = users.NewMemoryStore()
		d.tasks = tasks.NewMemoryStore()
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	d.closers = append(d.closers, client.Disconnect)

	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	userStore := users.NewMongoStore(db)
	if err := userStore.EnsureIndexes(connectCtx); err != nil {
		return err
	}
	taskStore := tasks.NewMongoStore(db)
	if err := taskStore.EnsureIndexes(connectCtx); err != nil {
		return err
	}

	d.users, d.tasks = userStore, taskStore
	log.Info("connected to mongo", "database", cfg.MongoDatabase)
	return nil
}

// setupRedis は失効リストとレート制限の実装を選びます。
// REDIS_URL が空ならプロセス内の実装を使います。
func (d *dependencies) setupRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.RedisURL == "" {
		d.denylist = auth.NewMemoryDenylist()
		d.rateLimiter = middleware.RateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	d.closers = append(d.closers, func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	d.denylist = auth.NewRedisDenylist(rdb)
	d.rateLimiter = middleware.RedisRateLimiter(rdb, cfg.RateLimitRPS, cfg.RateLimitBurst)
	log.Info("connected to redis", "addr", opt.Addr)
	return nil
}

// Close は確保した順と逆順にリソースを解放します。
func (d *dependencies) Close(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			log.Warn("failed to release resource", logging.Err(err))
		}
	}
	d.closers = nil
}
