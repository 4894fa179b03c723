package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

var (
	checkSkipEmbeddings bool
	checkThreshold      float64
	checkMaxCandidates  int
	checkAutoRestore    bool
	checkJSON           bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check whether a file duplicates a stored document",
	Long: `Runs the duplicate checks for a file without storing it.

Stages run in order and stop at the first hit:
  1. exact bytes (file hash)
  2. normalised text (text hash)
  3. chunk embeddings scored per document (skipped with --skip-embeddings)

A soft-deleted document that matches by hash is restored with --auto-restore.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkSkipEmbeddings, "skip-embeddings", false, "stop after the hash checks")
	checkCmd.Flags().Float64VarP(&checkThreshold, "threshold", "t", domain.DefaultSimilarityThreshold,
		"minimum document score for a candidate, in (0, 1]")
	checkCmd.Flags().IntVarP(&checkMaxCandidates, "max-candidates", "n", domain.DefaultMaxCandidates,
		"maximum number of candidates to report")
	checkCmd.Flags().BoolVar(&checkAutoRestore, "auto-restore", false, "restore a soft-deleted hash match")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if similarityChecker == nil {
		return errNoSimilarityChecker
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	opts := checkOptions(cmd)
	result, err := similarityChecker.CheckSimilarity(cmd.Context(), content, filepath.Base(path), opts)
	if result == nil {
		if err == nil {
			err = errors.New("no result")
		}
		return fmt.Errorf("check failed: %w", err)
	}

	// A cancelled semantic stage still yields the hash-stage result.
	if checkJSON {
		if jsonErr := printJSON(cmd, result); jsonErr != nil {
			return jsonErr
		}
	} else {
		printCheckResult(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("check incomplete: %w", err)
	}
	return nil
}

// checkOptions starts from the configured similarity settings and applies
// any flags the user set explicitly.
func checkOptions(cmd *cobra.Command) domain.CheckOptions {
	opts := domain.DefaultCheckOptions()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			opts = settings.CheckOptions()
		}
	}

	if cmd.Flags().Changed("threshold") {
		opts.SimilarityThreshold = checkThreshold
	}
	if cmd.Flags().Changed("max-candidates") {
		opts.MaxCandidates = checkMaxCandidates
	}
	opts.SkipEmbeddings = checkSkipEmbeddings
	opts.AutoRestore = checkAutoRestore
	return opts
}

func printCheckResult(cmd *cobra.Command, result *domain.CheckResult) {
	cmd.Printf("Status: %s\n", statusLabel(result.Status))
	cmd.Printf("  File hash: %s\n", shortHash(result.Fingerprint.FileHash))
	cmd.Printf("  Text hash: %s\n", shortHash(result.Fingerprint.TextHash))

	if result.MatchedDocument != nil {
		doc := result.MatchedDocument
		cmd.Printf("  Matched:   %s [%s]\n", documentLabel(doc), doc.Status)
	}

	if len(result.Candidates) > 0 {
		cmd.Println()
		cmd.Println("Candidates:")
		for i, c := range result.Candidates {
			label := c.DocumentID
			if c.Title != "" {
				label = fmt.Sprintf("%s (%s)", c.Title, c.DocumentID)
			}
			cmd.Printf("  [%d] %s\n", i+1, label)
			cmd.Printf("      score %.3f  similarity %.3f  coverage %.3f  chunks %d/%d\n",
				c.FinalScore, c.AvgSimilarity, c.Coverage, c.MatchedChunks, c.TotalChunks)
		}
	}

	if result.Embedding != nil {
		cmd.Printf("  Embedded:  %d/%d chunks\n", result.Embedding.Successful, result.Embedding.Total)
	}

	if verbose && len(result.Stages) > 0 {
		stages := make([]string, len(result.Stages))
		for i, s := range result.Stages {
			stages[i] = string(s)
		}
		cmd.Printf("  Stages:    %s\n", dimText(strings.Join(stages, " -> ")))
	}

	printWarnings(cmd, "  ", result.Warnings)
}
