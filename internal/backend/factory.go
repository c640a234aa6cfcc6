package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kasir/internal/amqp"
	"kasir/internal/ports"
	"kasir/internal/pushtoken/mongo"
	"kasir/internal/storage"
	"kasir/internal/storage/memory"
	"kasir/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// closers runs cleanup steps in reverse registration order.
type closers []func() error

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b       *Backend
		cleanup closers
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		b = f.createMemoryBackend()
	case SQLiteBackend:
		b, cleanup, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		b, cleanup, err = f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.attachPushTokens(ctx, config, b, &cleanup); err != nil {
		_ = cleanup.close()
		return nil, err
	}
	f.attachAMQP(config, b, &cleanup)

	return &BackendResult{Backend: b, Cleanup: cleanup.close}, nil
}

func (f *DefaultFactory) createMemoryBackend() *Backend {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &Backend{
		Cash:          store,
		Transactions:  store,
		Orders:        store,
		Products:      store,
		Roles:         store,
		Notifications: store,
		Feed:          store,
		PushTokens:    store,
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Backend, closers, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	hub := storage.NewNotificationHub(repo)

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Backend{
		Cash:          repo,
		Transactions:  repo,
		Orders:        repo,
		Products:      repo,
		Roles:         repo,
		Notifications: hub,
		Feed:          hub,
		Ping:          repo.Ping,
	}, closers{repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Backend, closers, error) {
	store, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
	}

	f.logger.Info("Initialized postgres backend")
	return &Backend{
		Cash:          store,
		Transactions:  store,
		Orders:        store,
		Products:      store,
		Roles:         store,
		Notifications: store,
		Feed:          store,
		Ping:          store.Ping,
	}, closers{store.Close}, nil
}

func (f *DefaultFactory) attachPushTokens(ctx context.Context, config Config, b *Backend, cleanup *closers) error {
	if config.MongoURI == "" {
		if b.PushTokens == nil {
			f.logger.Warn("MONGO_URI not set, push tokens are kept in memory only")
			b.PushTokens = memory.New()
		}
		return nil
	}
	store, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect push token store: %w", err)
	}
	b.PushTokens = store
	*cleanup = append(*cleanup, store.Close)
	f.logger.Info("Initialized MongoDB push token store", "database", config.MongoDatabase)
	return nil
}

// attachAMQP wires the event publisher and, for backends without a native
// change feed, the cross-process notification fan-out. AMQP is optional: a
// failed connection leaves the backend without events.
func (f *DefaultFactory) attachAMQP(config Config, b *Backend, cleanup *closers) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return
	}
	b.Publisher = client
	*cleanup = append(*cleanup, client.Close)

	if config.Type != PostgresBackend && config.AMQPNotificationsExchange != "" {
		store := unwrapHub(b.Notifications)
		feed, err := amqp.NewNotificationFeed(store, client, config.AMQPNotificationsExchange)
		if err != nil {
			f.logger.Warn("Failed to declare notifications exchange, keeping in-process feed", "error", err)
		} else {
			b.Notifications = feed
			b.Feed = feed
		}
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
}

func unwrapHub(s ports.NotificationStore) ports.NotificationStore {
	if hub, ok := s.(*storage.NotificationHub); ok {
		return hub.NotificationStore
	}
	return s
}
