package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

var (
	documentListStatus string
	documentChunksFull bool
	documentJSON       bool
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long:  `List, inspect, soft-delete, restore or reprocess stored documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Show document chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Soft-delete a document",
	Long: `Moves the document's bytes to the deleted area and removes its vectors
from the index. Its chunks are kept so that it can be restored.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

var documentRestoreCmd = &cobra.Command{
	Use:   "restore [doc-id]",
	Short: "Restore a soft-deleted document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRestore,
}

var documentReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Re-chunk and re-embed a document",
	Long:  `Extracts the stored bytes again and replaces the document's chunks and vectors.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentReprocess,
}

func init() {
	documentListCmd.Flags().StringVarP(&documentListStatus, "status", "s", string(domain.StatusActive),
		"document status to list (active or deleted)")
	documentChunksCmd.Flags().BoolVar(&documentChunksFull, "full", false, "print full chunk contents")
	documentGetCmd.Flags().BoolVar(&documentJSON, "json", false, "output the document as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentRestoreCmd)
	documentCmd.AddCommand(documentReprocessCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	status := domain.DocumentStatus(documentListStatus)
	if !status.IsValid() {
		return fmt.Errorf("invalid status %q: use active or deleted", documentListStatus)
	}

	docs, err := documentService.List(cmd.Context(), status)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No %s documents.\n", status)
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s  %s  %s\n", docs[i].ID, docs[i].CreatedAt.Format("2006-01-02 15:04"), docs[i].Title)
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, doc)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:     %s\n", doc.Title)
	cmd.Printf("  File:      %s\n", doc.OriginalName)
	cmd.Printf("  Type:      %s\n", doc.MIMEType)
	cmd.Printf("  Size:      %d bytes\n", doc.Size)
	cmd.Printf("  Status:    %s\n", doc.Status)
	cmd.Printf("  File hash: %s\n", doc.ContentHash)
	cmd.Printf("  Text hash: %s\n", shortHash(doc.TextHash))
	if doc.PageCount > 0 {
		cmd.Printf("  Pages:     %d\n", doc.PageCount)
	}
	if doc.Author != "" {
		cmd.Printf("  Author:    %s\n", doc.Author)
	}
	if doc.Language != "" {
		cmd.Printf("  Language:  %s\n", doc.Language)
	}
	cmd.Printf("  Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	if doc.DeletedAt != nil {
		cmd.Printf("  Deleted:   %s\n", doc.DeletedAt.Format("2006-01-02 15:04:05"))
	}

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %v\n", k, doc.Metadata[k])
		}
	}

	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	chunks, err := documentService.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	printChunks(cmd, chunks, documentChunksFull)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("%s Document %s deleted\n", successText("✓"), args[0])
	return nil
}

func runDocumentRestore(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	doc, err := documentService.Restore(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to restore document: %w", err)
	}
	cmd.Printf("%s Document %s restored\n", successText("✓"), documentLabel(doc))
	return nil
}

func runDocumentReprocess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNoDocumentService
	}

	result, err := documentService.Reprocess(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to reprocess document: %w", err)
	}

	cmd.Printf("%s Document %s reprocessed: %d chunks", successText("✓"), result.Document.ID, result.ChunkCount)
	if result.Embedding != nil {
		cmd.Printf(", %d/%d embedded", result.Embedding.Successful, result.Embedding.Total)
	}
	cmd.Println()
	printWarnings(cmd, "  ", result.Warnings)
	return nil
}

func printChunks(cmd *cobra.Command, chunks []domain.Chunk, full bool) {
	if len(chunks) == 0 {
		cmd.Println("No chunks.")
		return
	}

	for i := range chunks {
		c := &chunks[i]
		embedded := ""
		if len(c.Embedding) > 0 {
			embedded = dimText(fmt.Sprintf(" [%d dims]", len(c.Embedding)))
		}
		cmd.Printf("[%d] %s, %d chars%s\n", c.Index, c.Type, runeLen(c.Content), embedded)
		if full {
			cmd.Println(c.Content)
			cmd.Println()
		} else {
			cmd.Printf("    %s\n", preview(c.Content, 80))
		}
	}
	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
}
