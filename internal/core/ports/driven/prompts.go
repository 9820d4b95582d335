package driven

// PromptStore provides access to oracle prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. These constants define the contract between
// prompt consumers and providers.
const (
	// PromptSystem is the oracle system prompt. No placeholders.
	PromptSystem = "system"

	// PromptDefinition drafts a definition artifact.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptDefinition = "definition"

	// PromptRule drafts rule artifacts.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptRule = "rule"

	// PromptInvariant drafts invariant artifacts.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptInvariant = "invariant"

	// PromptProcedure drafts procedure artifacts.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptProcedure = "procedure"

	// PromptContradiction drafts contradiction reports.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptContradiction = "contradiction"

	// PromptOpenQuestion drafts open questions.
	// Placeholders: {{subject}}, {{excerpts}}.
	PromptOpenQuestion = "openQuestion"
)

// Placeholders substituted into the kind templates.
const (
	PlaceholderSubject  = "{{subject}}"
	PlaceholderExcerpts = "{{excerpts}}"
)
