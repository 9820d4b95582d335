package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// generatedByHuman marks drafts written at the command line.
const generatedByHuman = "human"

var (
	draftKind      string
	draftName      string
	draftTerm      string
	draftTitle     string
	draftBody      string
	draftCites     []string
	draftTags      []string
	draftFromChunk string
	draftListKind  string
	synthLimit     int
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Write and manage draft artifacts",
	Long: `Drafts are proposals. They are never returned by lookups and never
become authoritative until promoted by a named reviewer.`,
}

var draftNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Save a new draft artifact",
	Long: `Saves a typed artifact as a DRAFT. Older drafts of the same kind and
name are replaced.

Citations are chunk ids (manual_chunk_0003) or document pages
(manual:12). With --from-chunk the chunk text becomes the body when no
--body is given, and the chunk is cited. Use --body - to read the body
from standard input.`,
	Args: cobra.NoArgs,
	RunE: runDraftNew,
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending drafts",
	Args:  cobra.NoArgs,
	RunE:  runDraftList,
}

var draftRmCmd = &cobra.Command{
	Use:   "rm [draft-key...]",
	Short: "Delete drafts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDraftRm,
}

var synthCmd = &cobra.Command{
	Use:   "synth [kind] [subject]",
	Short: "Ask the oracle for a draft artifact",
	Long: `Selects chunks that mention the subject, asks the configured oracle to
propose an artifact of the given kind citing [chunk:<id>] markers, and
saves the proposal as a DRAFT for human review.

Kinds: definition, rule, invariant, procedure, contradiction, openQuestion.`,
	Args: cobra.ExactArgs(2),
	RunE: runSynth,
}

func init() {
	draftNewCmd.Flags().StringVarP(&draftKind, "kind", "k", "", "artifact kind (required)")
	draftNewCmd.Flags().StringVar(&draftName, "name", "", "slug for the curated key (default from term)")
	draftNewCmd.Flags().StringVarP(&draftTerm, "term", "t", "", "concept the artifact is about")
	draftNewCmd.Flags().StringVar(&draftTitle, "title", "", "human-readable heading")
	draftNewCmd.Flags().StringVarP(&draftBody, "body", "b", "", "statement text, or - for stdin")
	draftNewCmd.Flags().StringArrayVar(&draftCites, "cite", nil, "citation (repeatable)")
	draftNewCmd.Flags().StringSliceVar(&draftTags, "tag", nil, "tag (repeatable)")
	draftNewCmd.Flags().StringVar(&draftFromChunk, "from-chunk", "", "derive the draft from a chunk")
	_ = draftNewCmd.MarkFlagRequired("kind")

	draftListCmd.Flags().StringVarP(&draftListKind, "kind", "k", "", "only drafts of this kind")

	synthCmd.Flags().IntVarP(&synthLimit, "limit", "n", 0, "maximum chunks sent to the oracle (default from config)")

	draftCmd.AddCommand(draftNewCmd)
	draftCmd.AddCommand(draftListCmd)
	draftCmd.AddCommand(draftRmCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(synthCmd)
}

func runDraftNew(cmd *cobra.Command, _ []string) error {
	if curationService == nil || citationLedger == nil {
		return errNotConfigured("curation")
	}
	ctx := cmd.Context()

	body := draftBody
	if body == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		body = string(data)
	}

	artifact := &domain.Artifact{
		Kind:        domain.ArtifactKind(draftKind),
		Name:        draftName,
		Term:        draftTerm,
		Title:       draftTitle,
		Tags:        draftTags,
		Body:        strings.TrimSpace(body),
		GeneratedBy: generatedByHuman,
	}

	if draftFromChunk != "" {
		citation, err := citationLedger.Resolve(ctx, domain.CitationRef{ChunkID: draftFromChunk})
		if err != nil {
			return fmt.Errorf("failed to resolve chunk %s: %w", draftFromChunk, err)
		}
		if artifact.Body == "" {
			quote, err := citationLedger.Quote(ctx, citation, 0)
			if err != nil {
				return fmt.Errorf("failed to read chunk %s: %w", draftFromChunk, err)
			}
			artifact.Body = quote
		}
		artifact.Citations = append(artifact.Citations, citation)
		artifact.GeneratedBy = "chunk:" + citation.ChunkID
	}

	for _, raw := range draftCites {
		ref, err := parseCitationRef(raw)
		if err != nil {
			return err
		}
		citation, err := citationLedger.Resolve(ctx, ref)
		if err != nil {
			// Kept so the ledger reports it; promotion stays blocked until fixed.
			citation = domain.Citation{ChunkID: ref.ChunkID, Document: ref.Document, PageStart: ref.Page, PageEnd: ref.Page}
		}
		artifact.Citations = append(artifact.Citations, citation)
	}
	artifact.Citations = domain.DedupCitations(artifact.Citations)

	saved, err := curationService.SaveDraft(ctx, artifact)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	printDraftResult(cmd, saved)
	return nil
}

// parseCitationRef reads "chunk:<id>", "<id>" or "<document>:<page>".
func parseCitationRef(raw string) (domain.CitationRef, error) {
	raw = strings.TrimSpace(raw)
	if id, ok := strings.CutPrefix(raw, "chunk:"); ok && id != "" {
		return domain.CitationRef{ChunkID: id}, nil
	}
	if i := strings.LastIndex(raw, ":"); i > 0 {
		page, err := strconv.Atoi(strings.TrimPrefix(raw[i+1:], "p"))
		if err != nil || page < 1 {
			return domain.CitationRef{}, fmt.Errorf("citation %q: page must be a positive number: %w", raw, domain.ErrInvalidInput)
		}
		return domain.CitationRef{Document: raw[:i], Page: page}, nil
	}
	if raw == "" {
		return domain.CitationRef{}, fmt.Errorf("empty citation: %w", domain.ErrInvalidInput)
	}
	return domain.CitationRef{ChunkID: raw}, nil
}

func runDraftList(cmd *cobra.Command, _ []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	keys, err := curationService.ListDrafts(cmd.Context(), draftListKind)
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}
	if len(keys) == 0 {
		cmd.Println("No pending drafts.")
		return nil
	}

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		parts, ok := domain.ParseDraftKey(k)
		if !ok {
			rows = append(rows, []string{"?", "?", "", k})
			continue
		}
		rows = append(rows, []string{parts.Kind, parts.Slug, parts.At.Format("2006-01-02 15:04:05"), k})
	}
	cmd.Println(renderTable([]string{"Kind", "Name", "Created (UTC)", "Key"}, rows, nil))
	cmd.Printf("Total: %d draft(s)\n", len(keys))
	return nil
}

func runDraftRm(cmd *cobra.Command, args []string) error {
	if curationService == nil {
		return errNotConfigured("curation")
	}
	var errs []error
	for _, key := range args {
		if err := curationService.DeleteDraft(cmd.Context(), key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		cmd.Printf("Deleted %s\n", key)
	}
	return errors.Join(errs...)
}

func runSynth(cmd *cobra.Command, args []string) error {
	if synthesisService == nil {
		return errNotConfigured("synthesis")
	}
	saved, err := synthesisService.Synthesize(cmd.Context(), driving.SynthesisRequest{
		Kind:    args[0],
		Subject: args[1],
		Limit:   synthLimit,
	})
	if errors.Is(err, domain.ErrOracleUnavailable) {
		return fmt.Errorf("%w: run 'canon settings oracle' to configure a provider", err)
	}
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}
	printDraftResult(cmd, saved)
	return nil
}

// printDraftResult reports a saved draft and how to promote it.
func printDraftResult(cmd *cobra.Command, saved *driving.DraftResult) {
	st := stylesFor(cmd.OutOrStdout())
	cmd.Println(st.draft.Render("DRAFT") + " saved: " + saved.Key)
	for _, r := range saved.Replaced {
		cmd.Println(st.muted.Render("  replaced " + r))
	}
	if len(saved.Unresolved) > 0 {
		cmd.Printf("  %d unresolved citation(s), promotion will be refused until fixed:\n", len(saved.Unresolved))
		for _, u := range saved.Unresolved {
			cmd.Printf("    %s\n", u)
		}
	}
	cmd.Printf("Promote with: canon promote --draft %s --reviewer <name>\n", saved.Key)
}
