package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/vfinder/internal/logger"
	"github.com/marmos91/vfinder/pkg/storage"
	"github.com/marmos91/vfinder/pkg/storage/aferofs"
	storageBadger "github.com/marmos91/vfinder/pkg/storage/badger"
	storageS3 "github.com/marmos91/vfinder/pkg/storage/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateStorage creates a storage backend based on configuration.
//
// This factory function uses the Type field to determine which backend
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the backend's constructor.
//
// Supported types:
//   - "local": Uses pkg/storage/aferofs on a directory of the host
//   - "memory": Uses pkg/storage/aferofs on an in-memory filesystem (ephemeral)
//   - "s3": Uses pkg/storage/s3 (S3 or any S3 compatible service)
//   - "badger": Uses pkg/storage/badger (BadgerDB, persistent)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Storage configuration
//
// Returns:
//   - storage.Backend: Initialized backend
//   - error: Configuration or initialization error
func CreateStorage(ctx context.Context, cfg *StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "local":
		return createLocalStorage(cfg.Local)
	case "memory":
		return aferofs.NewMemory(), nil
	case "s3":
		return createS3Storage(ctx, cfg.S3)
	case "badger":
		return createBadgerStorage(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

// createLocalStorage creates a storage rooted at a host directory.
func createLocalStorage(options map[string]any) (storage.Backend, error) {
	type LocalStorageConfig struct {
		Root      string `mapstructure:"root"`
		CreateDir *bool  `mapstructure:"create_dir"`
	}

	var storeCfg LocalStorageConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode local storage config: %w", err)
	}

	if storeCfg.Root == "" {
		return nil, fmt.Errorf("local storage: root is required")
	}

	root, err := filepath.Abs(storeCfg.Root)
	if err != nil {
		return nil, fmt.Errorf("local storage: invalid root %q: %w", storeCfg.Root, err)
	}

	// NewLocal creates a missing root, create_dir: false requires it to exist
	if storeCfg.CreateDir != nil && !*storeCfg.CreateDir {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("local storage: root %q: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("local storage: root %q is not a directory", root)
		}
	}

	store, err := aferofs.NewLocal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to create local storage: %w", err)
	}

	logger.Info("Local storage initialized: root=%s", root)
	return store, nil
}

// createS3Storage creates an S3-based storage.
func createS3Storage(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type S3StorageConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		PartSize        int64  `mapstructure:"part_size"`
		MaxRetries      int    `mapstructure:"max_retries"`
		ForcePathStyle  *bool  `mapstructure:"force_path_style"`
	}

	var storeCfg S3StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode S3 storage config: %w", err)
	}

	// Validate required fields
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 storage: bucket is required")
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 storage: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3), listing large folders
	// issues many requests in a row
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	// Custom endpoints (MinIO, Localstack) default to path-style addressing
	pathStyle := storeCfg.Endpoint != ""
	if storeCfg.ForcePathStyle != nil {
		pathStyle = *storeCfg.ForcePathStyle
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	// ========================================================================
	// Step 3: Create S3 Storage
	// ========================================================================

	store, err := storageS3.New(ctx, storageS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		PartSize:  storeCfg.PartSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	logger.Info("S3 storage initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// createBadgerStorage creates a BadgerDB-based storage.
func createBadgerStorage(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type BadgerStorageConfig struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_size_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_size_mb"`
	}

	var storeCfg BadgerStorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger storage config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger storage: db_path is required")
	}

	store, err := storageBadger.New(ctx, storageBadger.Config{
		DBPath:           storeCfg.DBPath,
		InMemory:         storeCfg.InMemory,
		BlockCacheSizeMB: storeCfg.BlockCacheSizeMB,
		IndexCacheSizeMB: storeCfg.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger storage: %w", err)
	}

	if storeCfg.InMemory {
		logger.Info("Badger storage initialized in memory")
	} else {
		logger.Info("Badger storage initialized: db_path=%s", storeCfg.DBPath)
	}
	return store, nil
}
