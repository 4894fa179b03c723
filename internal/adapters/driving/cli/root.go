// Package cli provides the sercha-dedup command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// annotationNoServices marks commands that run without wiring storage.
const annotationNoServices = "no-services"

// Global flags.
var (
	verbose    bool
	configPath string
	dataDir    string
)

// Services holds the ports the commands drive.
type Services struct {
	Documents  driving.DocumentService
	Similarity driving.SimilarityChecker
	Settings   driving.SettingsService
	Extractors driven.ExtractorRegistry
}

// BootstrapOptions carries the global flags into wiring.
type BootstrapOptions struct {
	ConfigPath string
	DataDir    string
}

// BootstrapFunc wires services for a command run. The returned cleanup
// releases stores and connections and may be nil.
type BootstrapFunc func(ctx context.Context, opts BootstrapOptions) (*Services, func(), error)

var (
	documentService   driving.DocumentService
	similarityChecker driving.SimilarityChecker
	settingsService   driving.SettingsService
	extractorRegistry driven.ExtractorRegistry

	bootstrap BootstrapFunc
	cleanup   func()
)

var rootCmd = &cobra.Command{
	Use:   "sercha-dedup",
	Short: "Detect duplicate and near-duplicate documents",
	Long: `sercha-dedup answers "have we seen this document before?".

A check compares the exact bytes, then the normalised text, then chunk
embeddings against every stored document, stopping at the first hit.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepareServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print stage-by-stage progress to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (.toml, .yaml or .yml; default ~/.sercha-dedup/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for the metadata database and stored files")
}

// SetServices installs the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	documentService = s.Documents
	similarityChecker = s.Similarity
	settingsService = s.Settings
	extractorRegistry = s.Extractors
}

// Execute runs the root command. fn is called once before a command that
// needs services; its cleanup runs when the command returns.
func Execute(ctx context.Context, fn BootstrapFunc) error {
	bootstrap = fn
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepareServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationNoServices] == "true" || bootstrap == nil {
		return nil
	}

	svc, done, err := bootstrap(cmd.Context(), BootstrapOptions{
		ConfigPath: configPath,
		DataDir:    dataDir,
	})
	if err != nil {
		return err
	}
	SetServices(svc)
	cleanup = done
	return nil
}

var (
	errNoDocumentService   = errors.New("document service not configured")
	errNoSimilarityChecker = errors.New("similarity checker not configured")
	errNoSettingsService   = errors.New("settings service not configured")
	errNoExtractors        = errors.New("text extractors not configured")
)
