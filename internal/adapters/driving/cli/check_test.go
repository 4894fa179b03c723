package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

const sampleText = "The quarterly report covers revenue, costs and hiring plans.\n\n" +
	"Revenue grew in every region while costs stayed flat."

func TestCheckCmd_Use(t *testing.T) {
	assert.Equal(t, "check [file]", checkCmd.Use)
}

func TestCheckCmd_Flags(t *testing.T) {
	for _, name := range []string{"skip-embeddings", "threshold", "max-candidates", "auto-restore", "json"} {
		assert.NotNil(t, checkCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "0.7", checkCmd.Flags().Lookup("threshold").DefValue)
	assert.Equal(t, "10", checkCmd.Flags().Lookup("max-candidates").DefValue)
}

func TestCheckCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestCheckCmd_MissingFile(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "check", "/nonexistent/file.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestCheckCmd_NoMatch(t *testing.T) {
	env := setupTestServices(t)
	path := env.writeFile(t, "new.txt", sampleText)

	out, err := executeCommand(t, "check", "--skip-embeddings", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: NO MATCH")
	assert.Contains(t, out, "File hash:")
}

func TestCheckCmd_ExactMatch(t *testing.T) {
	env := setupTestServices(t)
	doc := env.ingest(t, "report.txt", sampleText)
	path := env.writeFile(t, "copy.txt", sampleText)

	out, err := executeCommand(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: EXACT MATCH")
	assert.Contains(t, out, doc.ID)
}

func TestCheckCmd_TextHashMatch(t *testing.T) {
	env := setupTestServices(t)
	doc := env.ingest(t, "report.txt", sampleText)
	path := env.writeFile(t, "reformatted.txt", strings.ToUpper(sampleText)+"\n\n")

	out, err := executeCommand(t, "check", "--skip-embeddings", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: TEXT MATCH")
	assert.Contains(t, out, doc.ID)
}

func TestCheckCmd_SemanticUnavailableWarns(t *testing.T) {
	env := setupTestServices(t)
	path := env.writeFile(t, "new.txt", sampleText)

	out, err := executeCommand(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: NO MATCH")
	assert.Contains(t, out, "warning: semantic check skipped")
}

func TestCheckCmd_AutoRestore(t *testing.T) {
	env := setupTestServices(t)
	doc := env.ingest(t, "report.txt", sampleText)
	require.NoError(t, env.documents.Delete(context.Background(), doc.ID))
	path := env.writeFile(t, "copy.txt", sampleText)

	out, err := executeCommand(t, "check", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "EXACT MATCH")

	out, err = executeCommand(t, "check", "--auto-restore", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: RESTORED")

	restored, err := env.documents.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, restored.Status)
}

func TestCheckCmd_JSONOutput(t *testing.T) {
	env := setupTestServices(t)
	env.ingest(t, "report.txt", sampleText)
	path := env.writeFile(t, "copy.txt", sampleText)

	out, err := executeCommand(t, "check", "--json", path)
	require.NoError(t, err)

	var result domain.CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.CheckExactMatch, result.Status)
	require.NotNil(t, result.MatchedDocument)
	assert.Equal(t, "report.txt", result.MatchedDocument.OriginalName)
}

func TestCheckCmd_InvalidThreshold(t *testing.T) {
	env := setupTestServices(t)
	path := env.writeFile(t, "new.txt", sampleText)

	_, err := executeCommand(t, "check", "--threshold", "1.5", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckOptions_UsesSettings(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.config.Set("similarity.threshold", 0.85))
	require.NoError(t, env.config.Set("similarity.max_candidates", 3))

	opts := checkOptions(checkCmd)
	assert.InDelta(t, 0.85, opts.SimilarityThreshold, 1e-9)
	assert.Equal(t, 3, opts.MaxCandidates)

	require.NoError(t, checkCmd.Flags().Set("threshold", "0.5"))
	opts = checkOptions(checkCmd)
	assert.InDelta(t, 0.5, opts.SimilarityThreshold, 1e-9)
	assert.Equal(t, 3, opts.MaxCandidates)
}

func TestPrintCheckResult_Candidates(t *testing.T) {
	setupTestServices(t)

	out := captureOutput(func() {
		printCheckResult(rootCmd, &domain.CheckResult{
			Status: domain.CheckCandidates,
			Candidates: []domain.SimilarityCandidate{{
				DocumentID: "doc-1", Title: "Report", MatchedChunks: 9, TotalChunks: 10,
				AvgSimilarity: 0.9, Coverage: 0.9, FinalScore: 0.81,
			}},
			Embedding: &domain.EmbeddingSummary{Total: 4, Successful: 3, Failed: 1},
			Warnings:  []string{"1 of 4 chunk embeddings failed"},
		})
	})

	assert.Contains(t, out, "Status: SIMILAR")
	assert.Contains(t, out, "[1] Report (doc-1)")
	assert.Contains(t, out, "score 0.810")
	assert.Contains(t, out, "chunks 9/10")
	assert.Contains(t, out, "Embedded:  3/4 chunks")
	assert.Contains(t, out, "warning: 1 of 4 chunk embeddings failed")
}
