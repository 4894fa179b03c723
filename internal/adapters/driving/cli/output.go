package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

var (
	successText = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnText    = color.New(color.FgYellow).SprintFunc()
	alertText   = color.New(color.FgRed, color.Bold).SprintFunc()
	infoText    = color.New(color.FgCyan).SprintFunc()
	dimText     = color.New(color.Faint).SprintFunc()
)

// statusLabel renders a check status for humans.
func statusLabel(status domain.CheckStatus) string {
	switch status {
	case domain.CheckExactMatch:
		return alertText("EXACT MATCH")
	case domain.CheckTextHashMatch:
		return alertText("TEXT MATCH")
	case domain.CheckCandidates:
		return warnText("SIMILAR")
	case domain.CheckRestored:
		return infoText("RESTORED")
	case domain.CheckNoMatch:
		return successText("NO MATCH")
	default:
		return string(status)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printWarnings(cmd *cobra.Command, indent string, warnings []string) {
	for _, w := range warnings {
		cmd.Printf("%s%s %s\n", indent, warnText("warning:"), w)
	}
}

func shortHash(h string) string {
	if h == "" {
		return "-"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// preview returns the first n characters of s on a single line.
func preview(s string, n int) string {
	flat := make([]rune, 0, n)
	for _, r := range s {
		if len(flat) == n {
			return string(flat) + "..."
		}
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
	}
	return string(flat)
}

func documentLabel(doc *domain.Document) string {
	if doc == nil {
		return "-"
	}
	if doc.Title != "" {
		return fmt.Sprintf("%s (%s)", doc.Title, doc.ID)
	}
	return doc.ID
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(infoText(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(!color.NoColor),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
}

// runeLen counts characters, matching the chunker's size unit.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
