package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"ragbench/internal/adapter/fs"
	"ragbench/internal/domain"
)

var (
	ingestFields      domain.SourceFields
	ingestIndex       string
	ingestMaxArticles int
	ingestMeta        map[string]string
	ingestIncludes    []string
	ingestExcludes    []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest content into an index",
	Long: `Ingest exactly one source into a named index.

Examples:
  ragbench ingest --text "Go channels are typed conduits"
  ragbench ingest --url https://go.dev/doc/effective_go --index golang
  ragbench ingest --wikipedia "vector database" --max-articles 3
  ragbench ingest --financial AAPL --meta desk=equities`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir [path]",
	Short: "Ingest every text file under a directory",
	Long: `Ingest every UTF-8 text file under a directory, one document per file.
Include and exclude patterns are doublestar globs relative to the directory.

Examples:
  ragbench ingest dir ./notes
  ragbench ingest dir ./docs --include "**/*.md" --exclude "drafts/**"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngestDir,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestDirCmd)

	ingestCmd.PersistentFlags().StringVar(&ingestIndex, "index", "", "target index (default from config)")
	ingestCmd.PersistentFlags().StringToStringVar(&ingestMeta, "meta", nil, "extra metadata as key=value pairs")

	ingestCmd.Flags().StringVar(&ingestFields.Text, "text", "", "raw text to ingest")
	ingestCmd.Flags().StringVar(&ingestFields.URL, "url", "", "web page to fetch and ingest")
	ingestCmd.Flags().StringVar(&ingestFields.File, "file", "", "local text file to ingest")
	ingestCmd.Flags().StringVar(&ingestFields.Wikipedia, "wikipedia", "", "topic to search on Wikipedia")
	ingestCmd.Flags().StringVar(&ingestFields.News, "news", "", "topic to search recent news for")
	ingestCmd.Flags().StringVar(&ingestFields.Financial, "financial", "", "stock ticker to fetch financial data for")
	ingestCmd.Flags().IntVar(&ingestMaxArticles, "max-articles", 0, "article limit for --wikipedia and --news (default from config)")

	ingestDirCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns to include (default all files)")
	ingestDirCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to exclude")
}

func indexOrDefault(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return GetConfig().Retrieve.DefaultIndex
}

func metaFromFlags() map[string]any {
	if len(ingestMeta) == 0 {
		return nil
	}
	meta := make(map[string]any, len(ingestMeta))
	for k, v := range ingestMeta {
		meta[k] = v
	}
	return meta
}

func runIngest(cmd *cobra.Command, args []string) error {
	src, err := domain.NewIngestSource(ingestFields)
	if err != nil {
		return err
	}
	src.MaxArticles = ingestMaxArticles

	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	index := indexOrDefault(ingestIndex)
	fmt.Printf("Ingesting %s source into %q...\n", src.Kind, index)

	result, err := a.ingest.Ingest(cmd.Context(), index, src, metaFromFlags())
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(result)
	return nil
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	walker := fs.NewWalker(ingestIncludes, slices.Concat(fs.DefaultExcludes, ingestExcludes), maxFileSize)
	index := indexOrDefault(ingestIndex)
	fmt.Printf("Scanning %s...\n", path)

	result, err := a.ingest.IngestDirectory(cmd.Context(), index, path, walker, metaFromFlags(), progressReporter("Ingesting"))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(result)
	return nil
}

func printIngestResult(r domain.IngestResult) {
	fmt.Printf("\nIngest complete (%s):\n", r.Status)
	fmt.Printf("  Documents:      %d\n", len(r.DocumentIDs))
	fmt.Printf("  Chunks added:   %d\n", r.ChunksIngested)
	fmt.Printf("  Index size:     %d\n", r.VectorStoreSize)
}
