package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, the embedding provider, the vector index
and the similarity defaults.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "set-embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used for semantic checks.

Without --provider the provider is chosen interactively. An API key that is
required but not given is read from the terminal without echo.`,
	RunE: runSettingsEmbedding,
}

var settingsVectorCmd = &cobra.Command{
	Use:   "set-vector",
	Short: "Select the vector index backend",
	Long: `Select where chunk vectors are stored and searched.

Available backends:
  sqlite    - next to the document metadata, exhaustive scan (default)
  pgvector  - PostgreSQL with the pgvector extension (requires --dsn)
  memory    - process memory, not persisted`,
	RunE: runSettingsVector,
}

var settingsChunkingCmd = &cobra.Command{
	Use:   "set-chunking",
	Short: "Configure chunk sizes",
	RunE:  runSettingsChunking,
}

var (
	embedProvider   string
	embedModel      string
	embedAPIKey     string
	embedNoValidate bool

	vectorBackend string
	vectorDSN     string

	chunkingMaxSize           int
	chunkingOverlap           int
	chunkingMinSize           int
	chunkingRespectParagraphs bool
	chunkingRespectSentences  bool
)

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&embedProvider, "provider", "", "embedding provider (ollama or openai)")
	settingsEmbeddingCmd.Flags().StringVar(&embedModel, "model", "", "model name (default depends on provider)")
	settingsEmbeddingCmd.Flags().StringVar(&embedAPIKey, "api-key", "", "API key for cloud providers")
	settingsEmbeddingCmd.Flags().BoolVar(&embedNoValidate, "no-validate", false, "skip the connectivity check")

	settingsVectorCmd.Flags().StringVar(&vectorBackend, "backend", "", "vector backend (sqlite, pgvector or memory)")
	settingsVectorCmd.Flags().StringVar(&vectorDSN, "dsn", "", "PostgreSQL connection string for pgvector")
	_ = settingsVectorCmd.MarkFlagRequired("backend")

	defaults := domain.DefaultChunkingConfig()
	settingsChunkingCmd.Flags().IntVar(&chunkingMaxSize, "max-size", defaults.MaxChunkSize, "maximum characters per chunk")
	settingsChunkingCmd.Flags().IntVar(&chunkingOverlap, "overlap", defaults.Overlap, "overlap budget in characters")
	settingsChunkingCmd.Flags().IntVar(&chunkingMinSize, "min-size", defaults.MinChunkSize,
		"paragraphs shorter than this are dropped")
	settingsChunkingCmd.Flags().BoolVar(&chunkingRespectParagraphs, "respect-paragraphs", defaults.RespectParagraphs,
		"split on blank lines first")
	settingsChunkingCmd.Flags().BoolVar(&chunkingRespectSentences, "respect-sentences", defaults.RespectSentences,
		"pack whole sentences")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsVectorCmd)
	settingsCmd.AddCommand(settingsChunkingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Max chunk size: %d\n", settings.Chunking.MaxChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Printf("  Min chunk size: %d\n", settings.Chunking.MinChunkSize)
	cmd.Printf("  Respect paragraphs: %t\n", settings.Chunking.RespectParagraphs)
	cmd.Printf("  Respect sentences: %t\n", settings.Chunking.RespectSentences)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Provider != "" {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/second: %g\n", settings.Embedding.RequestsPerSecond)
	}
	status := successText("configured")
	if !settings.Embedding.IsConfigured() {
		status = warnText("not configured (semantic checks are skipped)")
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", settings.VectorIndex.Backend.Description())
	if settings.VectorIndex.Backend == domain.VectorBackendPgvector {
		cmd.Printf("  Table: %s\n", settings.VectorIndex.Table)
		cmd.Printf("  Dimensions: %d\n", settings.VectorIndex.Dimensions)
		if settings.VectorIndex.DSN != "" {
			cmd.Printf("  DSN: %s\n", maskDSN(settings.VectorIndex.DSN))
		} else {
			cmd.Printf("  DSN: (not set)\n")
		}
	}
	cmd.Println()

	cmd.Println("[Similarity]")
	cmd.Printf("  Threshold: %.2f\n", settings.Similarity.Threshold)
	cmd.Printf("  Max candidates: %d\n", settings.Similarity.MaxCandidates)
	cmd.Printf("  Search limit: %d\n", settings.Similarity.SearchLimit)
	cmd.Printf("  Search concurrency: %d\n", settings.Similarity.SearchConcurrency)
	cmd.Println()

	cmd.Println("[Storage]")
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	} else {
		cmd.Printf("  Data dir: (default)\n")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("%s %v\n", warnText("Warning:"), err)
		cmd.Println("Run 'sercha-dedup settings set-embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	var provider domain.AIProvider
	if embedProvider != "" {
		provider = domain.AIProvider(embedProvider)
		if !provider.IsValid() {
			return fmt.Errorf("invalid embedding provider: %s", embedProvider)
		}
	} else {
		cmd.Println("Select Embedding Provider")
		providers := domain.AllEmbeddingProviders()
		for i, p := range providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(reader), len(providers), 1)
		provider = providers[idx-1]
	}

	model := embedModel
	if model == "" && embedProvider == "" {
		defaultModel := domain.DefaultEmbeddingModels()[provider]
		cmd.Printf("Enter model name [%s]: ", defaultModel)
		model = readLine(reader)
	}

	apiKey := embedAPIKey
	if provider.RequiresAPIKey() && apiKey == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if !embedNoValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("%s: %v\n", alertText("FAILED"), err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println(successText("OK"))
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	return nil
}

func runSettingsVector(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	backend := domain.VectorBackend(vectorBackend)
	if err := settingsService.SetVectorBackend(backend, vectorDSN); err != nil {
		return fmt.Errorf("failed to set vector backend: %w", err)
	}
	cmd.Printf("Vector backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsChunking(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cfg := settings.Chunking
	flags := cmd.Flags()
	if flags.Changed("max-size") {
		cfg.MaxChunkSize = chunkingMaxSize
	}
	if flags.Changed("overlap") {
		cfg.Overlap = chunkingOverlap
	}
	if flags.Changed("min-size") {
		cfg.MinChunkSize = chunkingMinSize
	}
	if flags.Changed("respect-paragraphs") {
		cfg.RespectParagraphs = chunkingRespectParagraphs
	}
	if flags.Changed("respect-sentences") {
		cfg.RespectSentences = chunkingRespectSentences
	}

	if err := settingsService.SetChunking(cfg); err != nil {
		return fmt.Errorf("failed to set chunking: %w", err)
	}
	cmd.Printf("Chunking set to: max %d, overlap %d, min %d\n", cfg.MaxChunkSize, cfg.Overlap, cfg.MinChunkSize)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password in a postgres:// URL or key=value DSN.
func maskDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		rest := dsn[i+3:]
		at := strings.LastIndex(rest, "@")
		if at < 0 {
			return dsn
		}
		userinfo := rest[:at]
		if colon := strings.Index(userinfo, ":"); colon >= 0 {
			return dsn[:i+3] + userinfo[:colon] + ":****" + rest[at:]
		}
		return dsn
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
