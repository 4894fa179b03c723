package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driving"
)

var (
	ingestSkipEmbeddings bool
	ingestSkipDuplicates bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Store files as documents",
	Long: `Stores each file, extracts and chunks its text and indexes the chunk
embeddings. Files whose text cannot be extracted are still stored so that
their file hash takes part in later checks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestSkipEmbeddings, "skip-embeddings", false, "store chunks without embeddings")
	ingestCmd.Flags().BoolVar(&ingestSkipDuplicates, "skip-duplicates", false,
		"skip files whose bytes or text match an active document")
	rootCmd.AddCommand(ingestCmd)
}

// ingestOutcome is the per-file result shown after the progress bar.
type ingestOutcome struct {
	path      string
	result    *driving.IngestResult
	duplicate *domain.Document
	err       error
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}
	if ingestSkipDuplicates && similarityChecker == nil {
		return errNoSimilarityChecker
	}

	bar := newProgressBar(cmd.ErrOrStderr(), len(args), "Ingesting")
	outcomes := make([]ingestOutcome, 0, len(args))
	for _, path := range args {
		outcomes = append(outcomes, ingestFile(cmd, path))
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	failed := 0
	for _, o := range outcomes {
		name := filepath.Base(o.path)
		switch {
		case o.err != nil:
			failed++
			cmd.Printf("%s %s: %v\n", alertText("✗"), name, o.err)
		case o.duplicate != nil:
			cmd.Printf("%s %s: duplicate of %s\n", warnText("="), name, documentLabel(o.duplicate))
		default:
			cmd.Printf("%s %s -> %s (%d chunks", successText("✓"), name, o.result.Document.ID, o.result.ChunkCount)
			if o.result.Embedding != nil {
				cmd.Printf(", %d/%d embedded", o.result.Embedding.Successful, o.result.Embedding.Total)
			}
			cmd.Println(")")
			printWarnings(cmd, "    ", o.result.Warnings)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, path string) ingestOutcome {
	out := ingestOutcome{path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		out.err = fmt.Errorf("read: %w", err)
		return out
	}
	name := filepath.Base(path)

	if ingestSkipDuplicates {
		opts := domain.DefaultCheckOptions()
		opts.SkipEmbeddings = true
		check, err := similarityChecker.CheckSimilarity(cmd.Context(), content, name, opts)
		if err != nil {
			out.err = fmt.Errorf("check: %w", err)
			return out
		}
		if check.Status == domain.CheckExactMatch || check.Status == domain.CheckTextHashMatch {
			out.duplicate = check.MatchedDocument
			return out
		}
	}

	result, err := documentService.Ingest(cmd.Context(), content, name, driving.IngestOptions{
		SkipEmbeddings: ingestSkipEmbeddings,
	})
	if err != nil {
		out.err = err
		return out
	}
	out.result = result
	return out
}
