package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// snippetLength caps the chunk text shown per search result.
const snippetLength = 160

var (
	searchLimit    int
	searchDocument string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Keyword search over raw chunks",
	Long: `Filters raw document chunks that contain every keyword, in chunk order,
with the number of keyword occurrences. Results are NON-AUTHORITATIVE: they
are source text, not curated knowledge. Use "canon lookup" for curated
answers.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict to one document")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResultOutput is the JSON form of a raw search result.
type searchResultOutput struct {
	ChunkID       string `json:"chunk_id"`
	Document      string `json:"document"`
	Section       string `json:"section,omitempty"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
	Matches       int    `json:"matches"`
	Text          string `json:"text"`
	Authoritative bool   `json:"authoritative"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured("search")
	}

	opts := domain.RawSearchOptions{Limit: searchLimit, Document: searchDocument}
	results, err := searchService.SearchRaw(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out := make([]searchResultOutput, len(results))
		for i := range results {
			c := &results[i].Chunk
			out[i] = searchResultOutput{
				ChunkID:   c.ID,
				Document:  c.SourceDocument,
				Section:   c.Section,
				PageStart: c.PageStart,
				PageEnd:   c.PageEnd,
				Matches:   results[i].Matches,
				Text:      c.Text,
			}
		}
		return printJSON(cmd, out)
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.raw.Render("NON-AUTHORITATIVE") + " raw chunks, not curated knowledge")
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	rows := make([][]string, len(results))
	for i := range results {
		c := &results[i].Chunk
		rows[i] = []string{
			c.ID,
			pages(c.PageStart, c.PageEnd),
			c.Section,
			strconv.Itoa(results[i].Matches),
			snippet(c.Text, snippetLength),
		}
	}
	cmd.Println(renderTable(
		[]string{"Chunk", "Pages", "Section", "Matches", "Text"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	cmd.Printf("Results: %d\n", len(results))
	return nil
}
