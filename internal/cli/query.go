package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText  string
	queryTopK  int
	queryIndex string
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search an index",
	Long: `Search a named index for the chunks most similar to a query.

Examples:
  ragbench query -q "attention mechanism"
  ragbench query -q "revenue growth" --index finance --top-k 10 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().StringVar(&queryIndex, "index", "", "index to search (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.retrieve.Query(cmd.Context(), indexOrDefault(queryIndex), queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s (%d chunks searched in %.3fs)\n\n", len(resp.Results), resp.Query, resp.TotalChunks, resp.TimeTaken)
	for i, r := range resp.Results {
		src, _ := r.Metadata["source"].(string)
		fmt.Printf("--- [%d] %s (score: %.3f) ---\n", i+1, src, r.Score)
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
