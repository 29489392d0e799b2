package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var adminIndex string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and document store status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every chunk from an index",
	Long: `Remove every chunk from an index. Stored documents are kept, so the
index can be rebuilt with 'ragbench reindex'.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild an index from the stored documents",
	Long: `Clear an index and re-embed every stored document into it. Run this after
changing the embedding provider or model.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect stored documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents in processing order",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

func init() {
	rootCmd.AddCommand(statusCmd, clearCmd, reindexCmd, docsCmd)
	docsCmd.AddCommand(docsListCmd)

	for _, c := range []*cobra.Command{statusCmd, clearCmd, reindexCmd} {
		c.Flags().StringVar(&adminIndex, "index", "", "index name (default from config)")
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.status.Status(indexOrDefault(adminIndex))
	if err != nil {
		return err
	}

	model := report.Stats.EmbeddingModel
	fmt.Printf("Index:           %s\n", report.Index)
	fmt.Printf("  Chunks:        %d\n", report.VectorStoreSize)
	fmt.Printf("  Embedding:     %s/%s (dim %d)\n", model.ModelType, model.ModelName, model.Dimension)
	if report.Stats.IndexFile != "" {
		fmt.Printf("  Index file:    %s\n", report.Stats.IndexFile)
	}
	fmt.Printf("Documents:       %d\n", report.Documents)
	if report.LastIngest != nil {
		fmt.Printf("Last ingest:     %s\n", report.LastIngest.Local().Format(time.RFC3339))
	} else {
		fmt.Println("Last ingest:     never")
	}
	if names := a.indices.Names(); len(names) > 1 {
		fmt.Printf("Loaded indices:  %v\n", names)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	index := indexOrDefault(adminIndex)
	if err := a.status.Clear(index); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Printf("Index %q cleared.\n", index)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ingest.Reindex(cmd.Context(), indexOrDefault(adminIndex), progressReporter("Reindexing"))
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if err := a.docs.RecordConfig(GetConfig()); err != nil {
		return fmt.Errorf("failed to record config: %w", err)
	}
	printIngestResult(result)
	return nil
}

func runDocsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.status.Documents()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents stored.")
		return nil
	}
	for _, d := range docs {
		typ, _ := d.Metadata["type"].(string)
		src, _ := d.Metadata["source"].(string)
		fmt.Printf("%s  %-9s %3d chunks  %s  %s\n", d.ProcessedAt.Local().Format(time.DateTime), typ, len(d.Chunks), d.ID, src)
	}
	return nil
}
