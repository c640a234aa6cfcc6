package backend

import (
	"context"
	"path/filepath"
	"testing"

	"kasir/internal/config"
	"kasir/internal/core"
	"kasir/internal/storage"
	"kasir/internal/storage/memory"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is no longer a data backend")
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[2] != "postgres" {
		t.Errorf("unexpected backend strings %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", MongoDatabase: "kasir"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" {
		t.Fatalf("unexpected backend config %+v", cfg)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"mongo without database", Config{Type: MemoryBackend, MongoURI: "mongodb://localhost"}, true},
		{"unknown", Config{Type: "excel"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	b := res.Backend
	if _, ok := b.Cash.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", b.Cash)
	}
	if b.PushTokens == nil || b.Feed == nil {
		t.Fatal("memory backend should provide every port")
	}
	if b.Publisher != nil {
		t.Fatal("no publisher without AMQP")
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kasir.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	b := res.Backend
	if _, ok := b.Feed.(*storage.NotificationHub); !ok {
		t.Fatalf("sqlite realtime feed should be the in-process hub, got %T", b.Feed)
	}
	if b.Ping == nil {
		t.Fatal("sqlite backend should expose Ping")
	}
	ctx := context.Background()
	if err := b.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	got := make(chan core.Notification, 1)
	sub, err := b.Feed.Subscribe(ctx, func(n core.Notification) { got <- n })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if _, err := b.Notifications.InsertNotification(ctx, core.Notification{Title: "Halo"}); err != nil {
		t.Fatal(err)
	}
	select {
	case n := <-got:
		if n.Title != "Halo" {
			t.Fatalf("unexpected notification %+v", n)
		}
	default:
		t.Fatal("insert through the backend should reach the subscriber")
	}
}
