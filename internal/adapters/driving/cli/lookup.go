package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/core/domain"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup [name]",
	Short: "Look up a curated topic",
	Long: `Returns the CURATED dossier for a concept. Drafts are never returned.

When no curated topic exists the command lists what is available instead:
pending drafts, curated artifacts with a matching term and related topics.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage topic dossiers",
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List curated topics",
	Args:  cobra.NoArgs,
	RunE:  runTopicList,
}

var topicDraftCmd = &cobra.Command{
	Use:   "draft [name]",
	Short: "Assemble a draft dossier from curated artifacts",
	Long: `Gathers curated artifacts whose term matches the concept into a topic
dossier and saves it as a DRAFT. Sections without curated support read
NOT_SPECIFIED. Nothing is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runTopicDraft,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output as JSON")
	topicCmd.AddCommand(topicListCmd)
	topicCmd.AddCommand(topicDraftCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(topicCmd)
}

// lookupOutput is the JSON form of a lookup.
type lookupOutput struct {
	Name          string             `json:"name"`
	Key           string             `json:"key"`
	Outcome       string             `json:"outcome"`
	Dossier       string             `json:"dossier,omitempty"`
	DraftKeys     []string           `json:"draft_keys,omitempty"`
	MatchingTerms []domain.TermMatch `json:"matching_terms,omitempty"`
	RelatedTopics []string           `json:"related_topics,omitempty"`
	Instruction   string             `json:"instruction,omitempty"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	if lookupService == nil {
		return errNotConfigured("lookup")
	}
	res, err := lookupService.Lookup(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if lookupJSON {
		out := lookupOutput{
			Name:          res.Name,
			Key:           res.Key,
			Outcome:       string(res.Outcome),
			DraftKeys:     res.DraftKeys,
			MatchingTerms: res.MatchingTerms,
			RelatedTopics: res.RelatedTopics,
			Instruction:   res.Instruction,
		}
		if res.Found() {
			out.Dossier = frontmatter.RenderDossier(res.Topic)
		}
		return printJSON(cmd, out)
	}

	st := stylesFor(cmd.OutOrStdout())
	if res.Found() {
		cmd.Println(st.curated.Render("CURATED") + " " + st.muted.Render(res.Key))
		cmd.Println()
		cmd.Println(frontmatter.RenderDossier(res.Topic))
		return nil
	}

	cmd.Printf("No curated topic for %q (%s).\n\n", res.Name, res.Key)
	if res.DraftExists() {
		cmd.Println(st.draft.Render("Pending drafts") + " (not authoritative):")
		for _, k := range res.DraftKeys {
			cmd.Printf("  %s\n", k)
		}
		cmd.Println()
	}
	if len(res.MatchingTerms) > 0 {
		cmd.Println("Curated artifacts with a matching term:")
		for _, m := range res.MatchingTerms {
			cmd.Printf("  %-14s %s (%s)\n", m.Kind, m.Term, m.Key)
		}
		cmd.Println()
	}
	if len(res.RelatedTopics) > 0 {
		cmd.Println("Related curated topics:")
		for _, t := range res.RelatedTopics {
			cmd.Printf("  %s\n", t)
		}
		cmd.Println()
	}
	cmd.Println("Options:")
	if res.Instruction != "" {
		cmd.Printf("  - assemble a draft: %s\n", res.Instruction)
	}
	cmd.Printf("  - search raw chunks: canon search %q\n", res.Name)
	return nil
}

func runTopicList(cmd *cobra.Command, _ []string) error {
	if lookupService == nil {
		return errNotConfigured("lookup")
	}
	topics, err := lookupService.ListTopics(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}
	if len(topics) == 0 {
		cmd.Println("No curated topics.")
		return nil
	}
	rows := make([][]string, len(topics))
	for i, t := range topics {
		rows[i] = []string{t, domain.TopicKey(t)}
	}
	cmd.Println(renderTable([]string{"Topic", "Key"}, rows, nil))
	cmd.Printf("Total: %d topic(s)\n", len(topics))
	return nil
}

func runTopicDraft(cmd *cobra.Command, args []string) error {
	if topicAssembler == nil || curationService == nil {
		return errNotConfigured("topic")
	}
	topic, err := topicAssembler.Assemble(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to assemble topic: %w", err)
	}
	saved, err := curationService.SaveTopicDraft(cmd.Context(), topic)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	cmd.Println(frontmatter.RenderDossier(topic))
	cmd.Println()
	printDraftResult(cmd, saved)
	return nil
}
