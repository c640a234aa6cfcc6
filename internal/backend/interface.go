package backend

import (
	"context"

	"kasir/internal/ports"
	"kasir/internal/services"
)

// Backend bundles every data port the services need.
type Backend struct {
	Cash          ports.CashLedger
	Transactions  ports.TransactionStore
	Orders        ports.OrderStore
	Products      ports.ProductStore
	Roles         ports.RoleReader
	Notifications ports.NotificationStore
	Feed          ports.NotificationFeed
	PushTokens    ports.PushTokenStore

	// Publisher is nil when AMQP is not configured.
	Publisher services.EventPublisher

	// Ping checks the primary store; nil for the memory backend.
	Ping func(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// Optional document store for push tokens.
	MongoURI      string
	MongoDatabase string

	// Optional AMQP event bus.
	AMQPURL                   string
	AMQPExchange              string
	AMQPQueue                 string
	AMQPNotificationsExchange string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
