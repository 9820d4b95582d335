package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// Ensure SynthesisService implements the interface.
var _ driving.SynthesisService = (*SynthesisService)(nil)

// chunkMarker matches "[chunk:<id>]" citation markers in oracle output.
var chunkMarker = regexp.MustCompile(`\[chunk:([^\]\s]+)\]`)

// oracleMaxTokens bounds a single proposal.
const oracleMaxTokens = 2048

// SynthesisService asks the draft oracle for artifact text grounded in raw
// chunks. Whatever the oracle returns is stored as DRAFT only.
type SynthesisService struct {
	chunks    driven.ChunkStore
	curation  driving.CurationService
	oracle    driven.DraftOracle
	prompts   driven.PromptStore
	metrics   driven.MetricsRecorder
	limiter   *rate.Limiter
	timeout   time.Duration
	maxChunks int
}

// NewSynthesisService creates a synthesis service. A nil oracle disables
// synthesis; metrics may be nil.
func NewSynthesisService(
	chunks driven.ChunkStore,
	curation driving.CurationService,
	oracle driven.DraftOracle,
	prompts driven.PromptStore,
	cfg domain.OracleSettings,
	metrics driven.MetricsRecorder,
) *SynthesisService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	maxChunks := cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = domain.DefaultSettings().Oracle.MaxChunks
	}
	return &SynthesisService{
		chunks:    chunks,
		curation:  curation,
		oracle:    oracle,
		prompts:   prompts,
		metrics:   metrics,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxChunks: maxChunks,
	}
}

// Synthesize selects chunks mentioning the subject, asks the oracle for a
// draft and saves it through the curation service.
func (s *SynthesisService) Synthesize(ctx context.Context, req driving.SynthesisRequest) (*driving.DraftResult, error) {
	if s.oracle == nil {
		return nil, domain.ErrOracleUnavailable
	}
	kind := domain.ArtifactKind(req.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("artifact kind %q: %w", req.Kind, domain.ErrUnsupportedType)
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is empty: %w", domain.ErrInvalidInput)
	}
	limit := req.Limit
	if limit <= 0 || limit > s.maxChunks {
		limit = s.maxChunks
	}

	results, err := s.chunks.Search(ctx, domain.QueryTerms(subject), domain.RawSearchOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no chunks mention %q: %w", subject, domain.ErrNotFound)
	}
	offered := make([]domain.Chunk, len(results))
	for i := range results {
		offered[i] = results[i].Chunk
	}

	system, err := s.prompts.Load(driven.PromptSystem)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.prompts.Load(string(kind))
	if err != nil {
		return nil, err
	}
	proposal := driven.ProposalContext{
		Kind:      string(kind),
		Subject:   subject,
		System:    system,
		Prompt:    renderPrompt(tmpl, subject, renderExcerpts(offered)),
		Chunks:    offered,
		MaxTokens: oracleMaxTokens,
	}

	text, err := s.propose(ctx, proposal)
	if err != nil {
		return nil, err
	}

	artifact := &domain.Artifact{
		Kind:        kind,
		Name:        domain.Slug(subject),
		Title:       subject,
		Term:        subject,
		Body:        strings.TrimSpace(text),
		Citations:   citationsFromMarkers(text, offered),
		GeneratedBy: "oracle:" + s.oracle.ModelName(),
	}
	return s.curation.SaveDraft(ctx, artifact)
}

// propose calls the oracle under the rate limit and timeout.
func (s *SynthesisService) propose(ctx context.Context, p driven.ProposalContext) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		s.metrics.OracleCalled("rate_limited", 0)
		return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	start := time.Now()
	logger.Debug("oracle %s: %s %q with %d chunk(s)", s.oracle.ModelName(), p.Kind, p.Subject, len(p.Chunks))
	text, err := s.oracle.ProposeDraft(ctx, p)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.OracleCalled("error", elapsed)
		return "", fmt.Errorf("oracle proposal: %w", err)
	}
	s.metrics.OracleCalled("ok", elapsed)
	return text, nil
}

// renderPrompt fills the named placeholders of a kind template. The rest
// of the template is copied literally, so "%" needs no escaping. Templates
// from older releases used two positional %s verbs; those are filled in
// order when no named placeholder is present.
func renderPrompt(tmpl, subject, excerpts string) string {
	if !strings.Contains(tmpl, driven.PlaceholderSubject) && !strings.Contains(tmpl, driven.PlaceholderExcerpts) &&
		strings.Count(tmpl, "%s") == 2 {
		tmpl = strings.Replace(tmpl, "%s", driven.PlaceholderSubject, 1)
		tmpl = strings.Replace(tmpl, "%s", driven.PlaceholderExcerpts, 1)
	}
	return strings.NewReplacer(
		driven.PlaceholderSubject, subject,
		driven.PlaceholderExcerpts, excerpts,
	).Replace(tmpl)
}

// renderExcerpts formats chunks for the prompt, each under its marker.
func renderExcerpts(chunks []domain.Chunk) string {
	var b strings.Builder
	for i := range chunks {
		c := &chunks[i]
		fmt.Fprintf(&b, "[chunk:%s] %s pp.%d-%d", c.ID, c.SourceDocument, c.PageStart, c.PageEnd)
		if c.Section != "" {
			fmt.Fprintf(&b, " (%s)", c.Section)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// citationsFromMarkers turns "[chunk:<id>]" markers into citations. Offered
// chunks carry their provenance; unknown ids are kept bare so the ledger
// reports them.
func citationsFromMarkers(text string, offered []domain.Chunk) []domain.Citation {
	byID := make(map[string]*domain.Chunk, len(offered))
	for i := range offered {
		byID[offered[i].ID] = &offered[i]
	}
	var out []domain.Citation
	for _, m := range chunkMarker.FindAllStringSubmatch(text, -1) {
		if c, ok := byID[m[1]]; ok {
			out = append(out, domain.CitationFor(c))
			continue
		}
		out = append(out, domain.Citation{ChunkID: m[1]})
	}
	return domain.DedupCitations(out)
}
