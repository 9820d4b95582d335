package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

var (
	cleanAll bool
	cleanYes bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise the knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove regenerable data",
	Long: `Removes every chunk set; run "canon ingest" to rebuild them.
With --all, pending drafts are removed too. Curated entities are never
touched.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-check every curated citation",
	Long: `Resolves every citation of every curated artifact and topic against the
current chunk sets and reports the ones that no longer resolve, for
example after a source document changed.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "also delete pending drafts")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(validateCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if maintenanceService == nil {
		return errNotConfigured("maintenance")
	}
	status, err := maintenanceService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	cmd.Printf("Documents: %d\n", status.Documents)
	cmd.Printf("Chunks:    %d\n\n", status.Chunks)

	kinds := make([]string, 0, len(domain.ArtifactKinds)+1)
	for _, k := range domain.ArtifactKinds {
		kinds = append(kinds, string(k))
	}
	kinds = append(kinds, domain.KindTopic)
	for k := range status.Curated {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}

	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k, strconv.Itoa(status.Curated[k]), strconv.Itoa(status.Drafts[k])})
	}
	cmd.Println(renderTable(
		[]string{"Kind", "Curated", "Drafts"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	return nil
}

func runClean(cmd *cobra.Command, _ []string) error {
	if maintenanceService == nil {
		return errNotConfigured("maintenance")
	}
	if cleanAll && !cleanYes {
		ok, err := confirm(cmd, "Delete all chunks and every pending draft? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	res, err := maintenanceService.Clean(cmd.Context(), driving.CleanRequest{Drafts: cleanAll})
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}
	cmd.Printf("Removed chunks of %d document(s)", res.Documents)
	if cleanAll {
		cmd.Printf(" and %d draft(s)", res.Drafts)
	}
	cmd.Println(". Curated entities were kept.")
	return nil
}

// confirm asks a yes/no question on an interactive terminal.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return false, errors.New("refusing to delete drafts without --yes when not interactive")
	}
	cmd.Print(prompt)
	answer := strings.ToLower(readLine(bufio.NewReader(in)))
	return answer == "y" || answer == "yes", nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if maintenanceService == nil {
		return errNotConfigured("maintenance")
	}
	report, err := maintenanceService.Validate(cmd.Context())
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if len(report.Broken) == 0 {
		cmd.Printf("Checked %d curated entit(ies): all citations resolve.\n", report.Checked)
		return nil
	}

	keys := make([]string, 0, len(report.Broken))
	for k := range report.Broken {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var rows [][]string
	for _, k := range keys {
		for _, u := range report.Broken[k] {
			rows = append(rows, []string{k, u.Citation.String(), u.Reason})
		}
	}
	cmd.Println(renderTable([]string{"Entity", "Citation", "Reason"}, rows, nil))
	cmd.Printf("Checked %d curated entit(ies): %d with broken citations.\n", report.Checked, len(keys))
	return fmt.Errorf("%d curated entit(ies) have unresolved citations: %w", len(keys), domain.ErrUnresolvedCitation)
}
