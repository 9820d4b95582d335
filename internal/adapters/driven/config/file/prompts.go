package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads oracle prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// citationRule is shared by every drafting template.
const citationRule = `Cite every statement with the marker of the excerpt it comes from, e.g. [chunk:manual_chunk_0007].
Use only the excerpts below. If they do not support a statement, leave it out.`

// defaultPrompts contains embedded default prompts.
// Every template except the system prompt takes the subject, then the excerpts.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptSystem: `You draft knowledge base entries from technical documents.
Your output is a DRAFT that a human reviewer will check against the cited sources before it is trusted.
Never invent facts, numbers or names. Prefer quoting the source wording over paraphrase.
Write plain markdown without front matter.`,

	driven.PromptDefinition: `Write a one paragraph definition of {{subject}}.
` + citationRule + `

Excerpts:
{{excerpts}}`,

	driven.PromptRule: `List the rules that govern {{subject}}: requirements, constraints and ordering the documents state as mandatory.
One rule per bullet.
` + citationRule + `

Excerpts:
{{excerpts}}`,

	driven.PromptInvariant: `List the invariants and limitations of {{subject}}: conditions that always hold, ranges, and things it cannot do.
One per bullet.
` + citationRule + `

Excerpts:
{{excerpts}}`,

	driven.PromptProcedure: `Write the procedure for {{subject}} as numbered steps in the order the documents give.
` + citationRule + `

Excerpts:
{{excerpts}}`,

	driven.PromptContradiction: `Find statements about {{subject}} that disagree with each other across the excerpts.
For each disagreement, quote both sides with their markers. Do not decide which one is right.
If there is no disagreement, answer "None found".

Excerpts:
{{excerpts}}`,

	driven.PromptOpenQuestion: `List the questions about {{subject}} that the excerpts raise but do not answer.
One question per bullet, each followed by the markers of the excerpts that raise it.

Excerpts:
{{excerpts}}`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.canon/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".canon", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# canon prompts

Templates used when canon asks the draft oracle for a proposal.
Whatever the oracle returns is saved as a DRAFT and must be promoted by a reviewer.

## Files

- ` + "`system.txt`" + ` - System prompt sent with every request
- ` + "`definition.txt`" + `, ` + "`rule.txt`" + `, ` + "`invariant.txt`" + `, ` + "`procedure.txt`" + `,
  ` + "`contradiction.txt`" + `, ` + "`openQuestion.txt`" + ` - One template per artifact kind

## Format Placeholders

Each kind template uses two placeholders, in any order and as often as needed:
` + "`{{subject}}`" + ` is the subject being drafted and ` + "`{{excerpts}}`" + ` the cited source excerpts.
Any other text, including ` + "`%`" + ` signs, is sent unchanged.

Keep the ` + "`[chunk:<id>]`" + ` marker instruction: markers become the draft's citations.
Delete a file to restore its default.
`
	return os.WriteFile(path, []byte(content), 0600)
}
