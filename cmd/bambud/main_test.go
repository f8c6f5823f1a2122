package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/bambu-core/internal/cache"
	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

// writeConfig writes a config file for a printer that refuses connections.
func writeConfig(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
printer:
  host: "127.0.0.1"
  serial: "01S00C123456789"
  access_token: "12345678"
  mqtt_port: 1
  ftp_port: 2

mqtt:
  client_id: "test-client"
  reconnect:
    interval: 1
    max_interval: 1

transfer:
  scratch_dir: "` + filepath.Join(tmpDir, "scratch") + `"
  poll_interval: 1h
  retry_delay: 1s
  timeout: 1s

cache:
  backend: memory

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("BAMBU_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingToken verifies run refuses to start without credentials.
func TestRun_MissingToken(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	configContent := `
printer:
  host: "127.0.0.1"
  serial: "01S00C123456789"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("BAMBU_CONFIG", configPath)
	t.Setenv("BAMBU_PRINTER_TOKEN", "")

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail without an access token")
	}
}

// TestRun_ShutdownWhileConnecting verifies a shutdown signal during the
// first connection attempt is a clean exit.
func TestRun_ShutdownWhileConnecting(t *testing.T) {
	t.Setenv("BAMBU_CONFIG", writeConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(500*time.Millisecond, cancel)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("BAMBU_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("BAMBU_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestOpenCache_Memory verifies the default backend round-trips entries.
func TestOpenCache_Memory(t *testing.T) {
	ctx := context.Background()

	store, closeStore, err := openCache(ctx, config.CacheConfig{
		Backend: config.CacheMemory,
		Memory:  config.MemoryCacheConfig{Size: 8},
	})
	if err != nil {
		t.Fatalf("openCache() error = %v", err)
	}
	defer closeStore()

	if err := store.Set(ctx, "currentJob", []byte(`{"id":"1_2"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx, "currentJob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"id":"1_2"}` {
		t.Errorf("Get() = %s", got)
	}
}

// TestOpenCache_SQLite verifies the sqlite backend is migrated on open.
func TestOpenCache_SQLite(t *testing.T) {
	ctx := context.Background()

	store, closeStore, err := openCache(ctx, config.CacheConfig{
		Backend: config.CacheSQLite,
		SQLite: config.SQLiteCacheConfig{
			Path:        filepath.Join(t.TempDir(), "cache.db"),
			WALMode:     true,
			BusyTimeout: 5,
		},
	})
	if err != nil {
		t.Fatalf("openCache() error = %v", err)
	}
	defer closeStore()

	if _, err := store.Get(ctx, "lastJob"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get() on empty cache error = %v, want ErrNotFound", err)
	}
	if err := store.Set(ctx, "lastJob", []byte("{}")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Get(ctx, "lastJob"); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

// TestOpenCache_UnknownBackend verifies unknown backends are rejected.
func TestOpenCache_UnknownBackend(t *testing.T) {
	if _, _, err := openCache(context.Background(), config.CacheConfig{Backend: "etcd"}); err == nil {
		t.Error("openCache() should reject an unknown backend")
	}
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

// TestHealthCheck_NilInfluxClient verifies health check works with InfluxDB disabled.
func TestHealthCheck_NilInfluxClient(t *testing.T) {
	if err := healthCheck(context.Background(), fakeChecker{}, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}

	down := errors.New("not connected")
	if err := healthCheck(context.Background(), fakeChecker{err: down}, nil); !errors.Is(err, down) {
		t.Errorf("healthCheck() error = %v, want %v", err, down)
	}
}
