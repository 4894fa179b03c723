package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/services"
	"github.com/custodia-labs/sercha-dedup/internal/extractors"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
	"github.com/custodia-labs/sercha-dedup/internal/postprocessors"
)

// Environment variables that override file settings for one run.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	envOpenAIKey = "OPENAI_API_KEY"
	envPgDSN     = "SERCHA_DEDUP_PG_DSN"
)

// bootstrap opens the stores and builds the services for one command run.
func bootstrap(ctx context.Context, opts cli.BootstrapOptions) (*cli.Services, func(), error) {
	configStore, err := openConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	applyEnv(settings, os.Getenv)

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = settings.Storage.DataDir
	}
	dataDir, err = resolveDataDir(dataDir)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("data dir: %s", dataDir)

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata store: %w", err)
	}
	objects, err := filesystem.NewObjectStore(dataDir)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("open object store: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settingsSvc.GetPipelineConfig())
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	logger.Debug("chunk pipeline: %s", strings.Join(pipeline.Names(), " -> "))

	// The index is handed over even when the provider is down, so deletes,
	// restores and reprocessing keep it in step with the document store.
	semantic := ai.Initialise(ctx, settings, store.VectorIndex())
	provider, index := semantic.EmbeddingProvider, semantic.VectorIndex
	if semantic.FellBack {
		logger.Info("semantic checks disabled; hash checks only")
	}

	extractorRegistry := extractors.NewDefaultRegistry()
	embeddingCfg := settings.Embedding.Config()
	docStore := store.DocumentStore()

	svcs := &cli.Services{
		Documents: services.NewDocumentService(docStore, objects, extractorRegistry, pipeline,
			provider, index, embeddingCfg),
		Similarity: services.NewSimilarityService(docStore, objects, extractorRegistry, pipeline,
			provider, index, embeddingCfg),
		Settings:   settingsSvc,
		Extractors: extractorRegistry,
	}

	cleanup := func() {
		semantic.Close()
		if err := store.Close(); err != nil {
			logger.Warn("close metadata store: %v", err)
		}
	}
	return svcs, cleanup, nil
}

func openConfigStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreAt(path)
	}
	return file.NewConfigStore("")
}

// applyEnv overrides secrets from the environment without persisting them.
func applyEnv(settings *domain.AppSettings, getenv func(string) string) {
	if key := strings.TrimSpace(getenv(envOpenAIKey)); key != "" {
		settings.Embedding.APIKey = key
	}
	if dsn := strings.TrimSpace(getenv(envPgDSN)); dsn != "" {
		settings.VectorIndex.DSN = dsn
	}
}

// resolveDataDir expands a leading ~ and falls back to ~/.sercha-dedup/data.
func resolveDataDir(dir string) (string, error) {
	if dir != "" && !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if dir == "" {
		return filepath.Join(home, ".sercha-dedup", "data"), nil
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
}
