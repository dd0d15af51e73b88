package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/vfinder/pkg/adapter/httpapi"
	"github.com/marmos91/vfinder/pkg/adapter/lambda"
)

func TestCreateStorage_Local(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "files")
	cfg := &StorageConfig{
		Name:  "local",
		Type:  "local",
		Local: map[string]any{"root": root},
	}

	store, err := CreateStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create local storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("Expected root %s to be created", root)
	}

	if err := store.Write(ctx, "hello.txt", []byte("hi")); err != nil {
		t.Fatalf("Failed to write through local storage: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "hello.txt")); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}
}

func TestCreateStorage_LocalMissingRoot(t *testing.T) {
	_, err := CreateStorage(context.Background(), &StorageConfig{
		Type:  "local",
		Local: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing root")
	}
	if !strings.Contains(err.Error(), "root is required") {
		t.Errorf("Expected 'root is required' error, got: %v", err)
	}
}

func TestCreateStorage_LocalNoCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	_, err := CreateStorage(context.Background(), &StorageConfig{
		Type:  "local",
		Local: map[string]any{"root": root, "create_dir": false},
	})
	if err == nil {
		t.Fatal("Expected error for a missing root with create_dir=false")
	}
}

func TestCreateStorage_Memory(t *testing.T) {
	store, err := CreateStorage(context.Background(), &StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory storage: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateStorage_BadgerInMemory(t *testing.T) {
	store, err := CreateStorage(context.Background(), &StorageConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	})
	if err != nil {
		t.Fatalf("Failed to create badger storage: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close badger storage: %v", err)
	}
}

func TestCreateStorage_BadgerPath(t *testing.T) {
	store, err := CreateStorage(context.Background(), &StorageConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "db")},
	})
	if err != nil {
		t.Fatalf("Failed to create badger storage: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close badger storage: %v", err)
	}
}

func TestCreateStorage_BadgerMissingPath(t *testing.T) {
	_, err := CreateStorage(context.Background(), &StorageConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateStorage_S3MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{"missing bucket", map[string]any{"region": "us-east-1"}, "bucket is required"},
		{"missing region", map[string]any{"bucket": "assets"}, "region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateStorage(context.Background(), &StorageConfig{Type: "s3", S3: tt.options})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q error, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateStorage_UnknownType(t *testing.T) {
	_, err := CreateStorage(context.Background(), &StorageConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("Expected error for unknown storage type")
	}
	if !strings.Contains(err.Error(), "unknown storage type") {
		t.Errorf("Expected 'unknown storage type' error, got: %v", err)
	}
}

func TestInitializeRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Storages: []StorageConfig{
			{Name: "local", Type: "local", Local: map[string]any{"root": t.TempDir()}},
			{Name: "scratch", Type: "memory", ReadOnly: true},
			{Name: "db", Type: "badger", Badger: map[string]any{"in_memory": true}},
		},
	}
	ApplyDefaults(cfg)

	reg, err := InitializeRegistry(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to initialize registry: %v", err)
	}
	defer func() { _ = reg.Close() }()

	keys := reg.Keys()
	if strings.Join(keys, ",") != "local,scratch,db" {
		t.Errorf("Expected storages in configuration order, got %v", keys)
	}
	if reg.Default() != "local" {
		t.Errorf("Expected default storage 'local', got %q", reg.Default())
	}
	if !reg.IsReadOnly("scratch") {
		t.Error("Expected 'scratch' to be read-only")
	}
	if reg.IsReadOnly("local") {
		t.Error("Expected 'local' to be writable")
	}
}

func TestInitializeRegistry_StorageFailure(t *testing.T) {
	cfg := &Config{
		Storages: []StorageConfig{
			{Name: "db", Type: "badger", Badger: map[string]any{"in_memory": true}},
			{Name: "broken", Type: "local", Local: map[string]any{}},
		},
	}

	_, err := InitializeRegistry(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for a broken storage")
	}
	if !strings.Contains(err.Error(), `"broken"`) {
		t.Errorf("Expected error to name the broken storage, got: %v", err)
	}
}

func TestInitializeRegistry_Empty(t *testing.T) {
	if _, err := InitializeRegistry(context.Background(), &Config{}); err == nil {
		t.Fatal("Expected error with no storages")
	}
	if _, err := InitializeRegistry(context.Background(), nil); err == nil {
		t.Fatal("Expected error with nil config")
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create adapters: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Protocol() != "HTTP" {
		t.Fatalf("Expected a single HTTP adapter, got %d", len(adapters))
	}

	cfg.Adapters.Lambda = lambda.Config{Enabled: true}
	adapters, err = CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create adapters: %v", err)
	}
	if len(adapters) != 2 || adapters[1].Protocol() != "Lambda" {
		t.Fatalf("Expected HTTP and Lambda adapters, got %d", len(adapters))
	}
}

func TestCreateAdapters_None(t *testing.T) {
	cfg := &Config{Adapters: AdaptersConfig{HTTP: httpapi.HTTPConfig{Enabled: false}}}

	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Fatal("Expected error when no adapter is enabled")
	}
}

func TestCreateAdapters_InvalidHTTP(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.MaxUploadSize = "lots"

	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Fatal("Expected error for invalid HTTP config")
	}
}

func TestCreateHandler(t *testing.T) {
	cfg := &Config{
		Storages: []StorageConfig{{Name: "local", Type: "memory"}},
		PublicLinks: []PublicLinkConfig{
			{Prefix: "local://public/", URL: "https://cdn.example.com"},
		},
	}
	ApplyDefaults(cfg)

	reg, err := InitializeRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to initialize registry: %v", err)
	}
	defer func() { _ = reg.Close() }()

	h, err := CreateHandler(cfg, reg)
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}
	if h == nil {
		t.Fatal("Expected non-nil handler")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil {
		t.Error("Expected no metrics server when metrics are disabled")
	}
	if result.ActionMetrics == nil {
		t.Error("Expected no-op action metrics, got nil")
	}
}

func TestInitializeMetrics_Enabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = 9191

	first := InitializeMetrics(cfg)
	if first.Server == nil {
		t.Fatal("Expected a metrics server when metrics are enabled")
	}
	if first.Server.Port() != 9191 {
		t.Errorf("Expected port 9191, got %d", first.Server.Port())
	}

	// A second call must not register the collectors again
	second := InitializeMetrics(cfg)
	if second.ActionMetrics != first.ActionMetrics {
		t.Error("Expected the action metrics to be shared between calls")
	}
}
