package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"socialfeed/pkg/config"
	"socialfeed/pkg/services"
	"socialfeed/pkg/storage"
	"socialfeed/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

const mongoDatabase = "socialfeed"

// app holds the services built from one configuration.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	region  string
	feed    services.FeedService
	board   services.BoardService
	worker  *services.EventWorker
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, region: cfg.Region}
	if a.region == "" {
		region, err := utils.Region(ctx)
		if err != nil {
			logger.Warn("error resolving region", "msg", err.Error())
			region = utils.DEFAULT_REGION
		}
		a.region = region
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	ids, err := services.NewIDGenerator(cfg.IDScheme)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []services.Option{
		services.WithIDGenerator(ids),
		services.WithLogger(logger),
		services.WithRegion(a.region),
	}
	if cfg.RabbitMQ.Enabled {
		notifier, err := a.buildNotifier(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, services.WithNotifier(notifier))
	}

	a.feed, err = services.NewFeedService(ctx, store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.board = services.NewBoardService(logger, nil)
	if cfg.RabbitMQ.Enabled {
		a.worker = services.NewEventWorker(a.feed, a.region, logger, a.openChannel)
	}
	return a, nil
}

func (a *app) buildStore(ctx context.Context) (storage.DocumentStore, error) {
	opts := a.cfg.Storage
	var store storage.DocumentStore
	switch opts.Backend {
	case config.BackendFile:
		s, err := storage.NewJSONFileStore(opts.Path)
		if err != nil {
			return nil, err
		}
		store = s
	case config.BackendMemory:
		store = storage.NewMemoryStore()
	case config.BackendMongoDB:
		client, err := storage.MongoDBClient(ctx, opts.MongoDBAddress, opts.MongoDBPort)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		store = storage.NewMongoDocumentStore(client, mongoDatabase, opts.DocumentKey)
	case config.BackendRedis:
		client := storage.RedisClient(opts.RedisAddress, opts.RedisPort)
		a.closers = append(a.closers, client.Close)
		store = storage.NewRedisDocumentStore(client, opts.DocumentKey)
	case config.BackendPostgres:
		pool, err := storage.NewPostgresPool(ctx, opts.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		s, err := storage.NewPostgresDocumentStore(ctx, pool, opts.DocumentKey)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	a.logger.Info("storage ready", "backend", opts.Backend)

	if a.cfg.Memcached.Enabled {
		client := storage.MemCachedClient(a.cfg.Memcached.Address, a.cfg.Memcached.Port)
		store = storage.NewCachedStore(store, client, opts.DocumentKey, a.logger)
		a.logger.Info("memcached cache enabled", "address", a.cfg.Memcached.Address, "port", a.cfg.Memcached.Port)
	}
	return store, nil
}

func (a *app) openChannel(ctx context.Context) (*amqp.Channel, *amqp.Connection, error) {
	r := a.cfg.RabbitMQ
	return storage.RabbitMQClient(ctx, r.Username, r.Password, r.Address, r.Port)
}

func (a *app) buildNotifier(ctx context.Context) (services.Notifier, error) {
	ch, conn, err := a.openChannel(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := services.NewAMQPNotifier(ch, conn, a.region, a.cfg.RabbitMQ.Regions)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.closers = append(a.closers, notifier.Close)
	return notifier, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
