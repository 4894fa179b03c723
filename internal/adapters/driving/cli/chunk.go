package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/postprocessors/chunker"
)

var (
	chunkMaxSize int
	chunkOverlap int
	chunkMinSize int
	chunkFull    bool
	chunkJSON    bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Preview how a file would be chunked",
	Long: `Extracts the file's text and splits it with the configured chunking
settings without storing anything. Flags override individual settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	defaults := domain.DefaultChunkingConfig()
	chunkCmd.Flags().IntVar(&chunkMaxSize, "max-size", defaults.MaxChunkSize, "maximum characters per chunk")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", defaults.Overlap, "overlap budget in characters")
	chunkCmd.Flags().IntVar(&chunkMinSize, "min-size", defaults.MinChunkSize, "paragraphs shorter than this are dropped")
	chunkCmd.Flags().BoolVar(&chunkFull, "full", false, "print full chunk contents")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output chunks and stats as JSON")
	rootCmd.AddCommand(chunkCmd)
}

// chunkPreview is the JSON form of a preview run.
type chunkPreview struct {
	File     string            `json:"file"`
	MIMEType string            `json:"mime_type"`
	Title    string            `json:"title,omitempty"`
	Stats    domain.ChunkStats `json:"stats"`
	Chunks   []domain.Chunk    `json:"chunks"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	if extractorRegistry == nil {
		return errNoExtractors
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	mimeType := extractorRegistry.DetectMIMEType(filepath.Base(path), content)
	text, err := extractorRegistry.Extract(cmd.Context(), content, mimeType)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	proc := chunker.New(chunker.WithConfig(chunkingConfig(cmd)))
	result, err := proc.Chunk("preview", text.Content)
	if err != nil {
		return fmt.Errorf("failed to chunk: %w", err)
	}

	if chunkJSON {
		return printJSON(cmd, chunkPreview{
			File:     filepath.Base(path),
			MIMEType: mimeType,
			Title:    text.Title,
			Stats:    result.Stats,
			Chunks:   result.Chunks,
		})
	}

	cmd.Printf("File: %s (%s)\n", filepath.Base(path), mimeType)
	if text.Title != "" {
		cmd.Printf("Title: %s\n", text.Title)
	}
	cmd.Printf("Chunks: %d  avg %.1f  min %d  max %d  overlap %.1f%%\n\n",
		len(result.Chunks), result.Stats.AverageChunkSize, result.Stats.MinChunkSize,
		result.Stats.MaxChunkSize, result.Stats.ActualOverlapPercentage)
	printChunks(cmd, result.Chunks, chunkFull)
	return nil
}

// chunkingConfig starts from the configured chunking settings and applies
// any flags the user set explicitly.
func chunkingConfig(cmd *cobra.Command) domain.ChunkingConfig {
	cfg := domain.DefaultChunkingConfig()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			cfg = settings.Chunking
		}
	}

	if cmd.Flags().Changed("max-size") {
		cfg.MaxChunkSize = chunkMaxSize
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Overlap = chunkOverlap
	}
	if cmd.Flags().Changed("min-size") {
		cfg.MinChunkSize = chunkMinSize
	}
	return cfg
}
