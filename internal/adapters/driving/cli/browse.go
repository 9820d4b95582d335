package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse topics, drafts and chunks interactively",
	Long: `Opens a terminal browser over the knowledge base. Every item is
labelled CURATED, DRAFT or RAW; only CURATED content is authoritative.

The browser is read-only. Review drafts here, then promote them with
"canon promote --draft <key> --reviewer <name>".`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Search:   searchService,
		Lookup:   lookupService,
		Curation: curationService,
	})
	if err != nil {
		return err
	}
	out, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(out.Fd())) {
		return errors.New("browse needs an interactive terminal")
	}
	restore := quietLogs(cmd)
	defer restore()
	return app.WithContext(cmd.Context()).Run()
}
