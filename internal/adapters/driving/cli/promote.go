package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

var (
	promoteDraft    string
	promoteTo       string
	promoteReviewer string
	promoteEdit     bool
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote a draft to curated",
	Long: `Promotes a DRAFT to CURATED under a named human reviewer.

Promotion is refused when the reviewer is missing, when a required
citation is missing or when any citation does not resolve to a chunk.
An existing curated entity is only replaced with --edit; the previous
version stays in its history.`,
	Args: cobra.NoArgs,
	RunE: runPromote,
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout [curated-key]",
	Short: "Copy a curated entity into a new draft for editing",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckout,
}

var historyCmd = &cobra.Command{
	Use:   "history [curated-key]",
	Short: "Show the review history of a curated entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print a draft or curated entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	promoteCmd.Flags().StringVar(&promoteDraft, "draft", "", "draft key to promote (required)")
	promoteCmd.Flags().StringVar(&promoteTo, "to", "", "curated destination key (default from the draft)")
	promoteCmd.Flags().StringVarP(&promoteReviewer, "reviewer", "r", "", "name of the human reviewer")
	promoteCmd.Flags().BoolVar(&promoteEdit, "edit", false, "allow replacing an existing curated entity")
	_ = promoteCmd.MarkFlagRequired("draft")

	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}

func runPromote(cmd *cobra.Command, _ []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	res, err := curationService.Promote(cmd.Context(), driving.PromoteRequest{
		DraftKey:    promoteDraft,
		Destination: promoteTo,
		ReviewedBy:  promoteReviewer,
		AllowEdit:   promoteEdit,
	})

	var denied *domain.PromotionDeniedError
	if errors.As(err, &denied) {
		cmd.PrintErrf("Promotion of %s denied:\n", denied.DraftKey)
		for _, r := range denied.Reasons {
			cmd.PrintErrf("  - %s\n", r)
		}
		for _, u := range denied.Unresolved {
			cmd.PrintErrf("  - unresolved citation %s\n", u)
		}
		return domain.ErrPromotionDenied
	}
	if err != nil {
		return fmt.Errorf("promotion failed: %w", err)
	}

	st := stylesFor(cmd.OutOrStdout())
	verb := "Promoted"
	if res.Edited {
		verb = "Updated"
	}
	cmd.Printf("%s %s to %s (reviewed by %s)\n", verb, promoteDraft, st.curated.Render(res.Key), strings.TrimSpace(promoteReviewer))
	return nil
}

func runCheckout(cmd *cobra.Command, args []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	saved, err := curationService.Checkout(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}
	printDraftResult(cmd, saved)
	cmd.Printf("Promote the edited draft with --to %s --edit\n", args[0])
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	revisions, err := curationService.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(revisions) == 0 {
		cmd.Println("No history.")
		return nil
	}
	rows := make([][]string, len(revisions))
	for i, r := range revisions {
		rows[i] = []string{
			r.At.UTC().Format("2006-01-02 15:04:05"),
			r.Action,
			r.ReviewedBy,
			r.DraftKey,
			r.ID,
		}
	}
	cmd.Println(renderTable([]string{"At (UTC)", "Action", "Reviewer", "Draft", "ID"}, rows, nil))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	key := args[0]
	ctx := cmd.Context()
	st := stylesFor(cmd.OutOrStdout())

	if keyKind(key) == domain.KindTopic {
		topic, err := curationService.GetTopic(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		cmd.Println(statusBanner(st, topic.Status) + " " + st.muted.Render(key))
		cmd.Println()
		cmd.Println(frontmatter.RenderDossier(topic))
		return nil
	}

	artifact, err := curationService.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	cmd.Println(statusBanner(st, artifact.Status) + " " + st.muted.Render(key))
	cmd.Println()
	cmd.Print(renderArtifact(st, artifact))
	return nil
}

// keyKind returns the kind segment of a draft or curated key.
func keyKind(key string) string {
	if parts, ok := domain.ParseDraftKey(key); ok {
		return parts.Kind
	}
	kind, _, _ := domain.CuratedKeyParts(key)
	return kind
}

func statusBanner(st styles, status domain.Status) string {
	if status == domain.StatusCurated {
		return st.curated.Render(string(status))
	}
	return st.draft.Render(string(status))
}

func renderArtifact(st styles, a *domain.Artifact) string {
	var b strings.Builder
	title := a.Title
	if title == "" {
		title = a.Term
	}
	b.WriteString(st.title.Render(title) + "\n\n")
	fmt.Fprintf(&b, "Kind:         %s\n", a.Kind)
	fmt.Fprintf(&b, "Term:         %s\n", a.Term)
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:         %s\n", strings.Join(a.Tags, ", "))
	}
	if a.GeneratedBy != "" {
		fmt.Fprintf(&b, "Generated by: %s\n", a.GeneratedBy)
	}
	if a.ReviewedBy != "" {
		fmt.Fprintf(&b, "Reviewed by:  %s\n", a.ReviewedBy)
	}
	if !a.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "Updated:      %s\n", a.LastUpdated.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	b.WriteString("\n" + strings.TrimSpace(a.Body) + "\n")
	if len(a.Citations) > 0 {
		b.WriteString("\nCitations:\n")
		for _, c := range a.Citations {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	return b.String()
}
