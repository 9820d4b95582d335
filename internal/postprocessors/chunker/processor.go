// Package chunker provides deterministic, boundary-aware text chunking.
//
// Documents are segmented into heading lines and sentences. Chunks are
// closed at the first section heading inside the token range, else at the
// first sentence boundary at or above the minimum, else hard cut at the
// maximum and flagged. Chunk texts are contiguous slices of the document
// text, so concatenating them in order reproduces it byte for byte.
package chunker

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// Default chunking bounds, in estimated tokens.
const (
	DefaultMinTokens   = 300
	DefaultMaxTokens   = 800
	DefaultTokenFactor = 1.3
)

// Processor splits document text into bounded, citable chunks.
// It implements the PostProcessor interface.
type Processor struct {
	minTokens      int
	maxTokens      int
	tokenFactor    float64
	carrySentences int
	headings       []*regexp.Regexp
	headingSource  []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinTokens sets the lower bound of the token range.
func WithMinTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minTokens = n
		}
	}
}

// WithMaxTokens sets the upper bound of the token range.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithTokenFactor sets the words-to-tokens factor.
func WithTokenFactor(f float64) Option {
	return func(p *Processor) {
		if f > 0 {
			p.tokenFactor = f
		}
	}
}

// WithCarrySentences enables repeating the previous chunk's last sentence (0 or 1).
func WithCarrySentences(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.carrySentences = n
		}
	}
}

// WithHeadingPatterns replaces the heading patterns. Each is matched
// against a whole trimmed line; capture group 1, when present, is the title.
func WithHeadingPatterns(patterns ...string) Option {
	return func(p *Processor) {
		if len(patterns) > 0 {
			p.headingSource = patterns
		}
	}
}

// New creates a chunker with the given options.
// Bounds are validated: 0 < min < max and 0 < factor < max-min.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		minTokens:     DefaultMinTokens,
		maxTokens:     DefaultMaxTokens,
		tokenFactor:   DefaultTokenFactor,
		headingSource: []string{domain.DefaultHeadingPattern},
	}

	for _, opt := range opts {
		opt(p)
	}

	cfg := domain.ChunkingSettings{
		MinTokens:       p.minTokens,
		MaxTokens:       p.maxTokens,
		TokenFactor:     p.tokenFactor,
		CarrySentences:  p.carrySentences,
		HeadingPatterns: p.headingSource,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p.headings = make([]*regexp.Regexp, len(p.headingSource))
	for i, src := range p.headingSource {
		p.headings[i] = regexp.MustCompile(src)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Bounds returns the configured token range.
func (p *Processor) Bounds() (minTokens, maxTokens int) {
	return p.minTokens, p.maxTokens
}

// Estimate returns the token estimate for a word count.
func (p *Processor) Estimate(words int) int {
	return int(math.Floor(float64(words) * p.tokenFactor))
}

// EstimateText returns the token estimate for a text.
func (p *Processor) EstimateText(text string) int {
	n := 0
	for _, w := range strings.Fields(text) {
		if countsAsWord(w) {
			n++
		}
	}
	return p.Estimate(n)
}

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from the pages.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	text, pages := layout(doc.Pages)
	if text == "" {
		// Empty document produces no chunks
		return nil, nil
	}

	words := scanWords(text, pages)
	segs := p.segment(text, words)
	plan := p.plan(words, segs)

	chunks := make([]domain.Chunk, 0, len(plan))
	for i, sp := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, p.build(doc, text, words, segs, sp, i+1))
	}
	for i := range chunks {
		chunks[i].Total = len(chunks)
	}

	return chunks, nil
}

// pageRange locates a page inside the document text.
type pageRange struct {
	number int
	start  int
	end    int
}

// layout builds the document text and the byte range of every page in it.
func layout(in []domain.Page) (string, []pageRange) {
	var b strings.Builder
	var pages []pageRange
	for _, pg := range in {
		t := strings.TrimSpace(pg.Text)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(domain.PageSeparator)
		}
		start := b.Len()
		b.WriteString(t)
		pages = append(pages, pageRange{number: pg.Number, start: start, end: b.Len()})
	}
	return b.String(), pages
}

// word is a whitespace-delimited token of the document text.
type word struct {
	start  int
	end    int
	page   int
	weight int
}

// scanWords tokenizes text and tags each token with its page.
func scanWords(text string, pages []pageRange) []word {
	var words []word
	pi := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		for pi < len(pages)-1 && start >= pages[pi].end {
			pi++
		}
		w := word{start: start, end: i, page: pages[pi].number}
		if countsAsWord(text[start:i]) {
			w.weight = 1
		}
		words = append(words, w)
	}
	return words
}

// countsAsWord reports whether a token carries a letter or digit.
// Bare punctuation such as heading markers and bullets does not count.
func countsAsWord(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// segment is a run of words that chunks never split unless forced.
type segment struct {
	first   int // first word index
	end     int // one past the last word index
	heading bool
	title   string
}

// segment groups words into heading lines and sentences.
// Blank lines always end a sentence.
func (p *Processor) segment(text string, words []word) []segment {
	var segs []segment
	open := -1
	wi := 0

	closeOpen := func(end int) {
		if open >= 0 && end > open {
			segs = append(segs, segment{first: open, end: end})
		}
		open = -1
	}

	lineStart := 0
	for lineStart < len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]

		// Words on this line.
		first := wi
		for wi < len(words) && words[wi].start < lineEnd {
			wi++
		}

		switch {
		case strings.TrimSpace(line) == "":
			closeOpen(first)
		case p.isHeading(line):
			closeOpen(first)
			segs = append(segs, segment{first: first, end: wi, heading: true, title: p.headingTitle(line)})
		default:
			for j := first; j < wi; j++ {
				if open < 0 {
					open = j
				}
				if endsSentence(text[words[j].start:words[j].end]) {
					closeOpen(j + 1)
				}
			}
		}

		lineStart = lineEnd + 1
	}
	closeOpen(len(words))

	return segs
}

func (p *Processor) isHeading(line string) bool {
	t := strings.TrimSpace(line)
	for _, re := range p.headings {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

func (p *Processor) headingTitle(line string) string {
	t := strings.TrimSpace(line)
	for _, re := range p.headings {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			return strings.TrimSpace(m[1])
		}
		return t
	}
	return t
}

// endsSentence reports whether a token closes a sentence: a terminal
// '.', '!' or '?' optionally followed by closing quotes or brackets.
func endsSentence(tok string) bool {
	t := strings.TrimRight(tok, "\"')]}”’")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// span is one planned chunk over word indices [first, end), optionally
// prefixed by carried words [carry, first).
type span struct {
	carry  int
	first  int
	end    int
	forced bool
}

// plan decides every chunk boundary. It is a pure function of the words
// and segments, so re-chunking the same text yields the same boundaries.
func (p *Processor) plan(words []word, segs []segment) []span {
	n := len(words)
	prefix := make([]int, n+1)
	for i, w := range words {
		prefix[i+1] = prefix[i] + w.weight
	}

	// segAt maps a word index to its segment; boundaries[k] is valid when
	// a cut may happen before word k, heading[k] when a heading starts there.
	segAt := make([]int, n)
	valid := make([]bool, n+1)
	heading := make([]bool, n+1)
	for si, s := range segs {
		for j := s.first; j < s.end; j++ {
			segAt[j] = si
		}
		if si > 0 && !segs[si-1].heading {
			valid[s.first] = true
		}
		heading[s.first] = s.heading
	}

	var out []span
	a := 0
	carry := -1
	for a < n {
		cw := 0
		if carry >= 0 {
			cw = prefix[a] - prefix[carry]
		}
		est := func(b int) int { return p.Estimate(prefix[b] - prefix[a] + cw) }

		b, forced := p.cut(a, n, est, valid, heading)

		sp := span{carry: a, first: a, end: b, forced: forced}
		if carry >= 0 {
			sp.carry = carry
		}
		out = append(out, sp)

		carry = -1
		if p.carrySentences > 0 && !forced && b < n && !heading[b] {
			last := segs[segAt[b-1]]
			start := max(last.first, a)
			if !last.heading && 2*p.Estimate(prefix[b]-prefix[start]) < p.minTokens {
				carry = start
			}
		}
		a = b
	}
	return out
}

// cut picks the end of the chunk starting at word a.
func (p *Processor) cut(a, n int, est func(int) int, valid, heading []bool) (int, bool) {
	// A heading inside the range always wins.
	for j := a + 1; j < n && est(j) <= p.maxTokens; j++ {
		if valid[j] && heading[j] && est(j) >= p.minTokens {
			return j, false
		}
	}

	if est(n) <= p.maxTokens {
		return n, false
	}

	for j := a + 1; j < n && est(j) <= p.maxTokens; j++ {
		if valid[j] && est(j) >= p.minTokens {
			return j, false
		}
	}

	// No boundary fits: hard cut at the last word that keeps the estimate in range.
	b := a + 1
	for j := a + 1; j < n && est(j) <= p.maxTokens; j++ {
		b = j
	}
	return b, true
}

// build materialises a planned span as a chunk.
func (p *Processor) build(doc *domain.Document, text string, words []word, segs []segment, sp span, index int) domain.Chunk {
	start := words[sp.first].start
	end := len(text)
	if sp.end < len(words) {
		end = words[sp.end].start
	}

	var carried string
	if sp.carry < sp.first {
		carried = text[words[sp.carry].start:start]
	}
	own := text[start:end]

	weight := 0
	for j := sp.carry; j < sp.end; j++ {
		weight += words[j].weight
	}

	return domain.Chunk{
		ID:             domain.ChunkID(doc.Name, index),
		SourceDocument: doc.Name,
		ProjectName:    doc.ProjectName,
		RelativePath:   doc.RelativePath,
		Section:        sectionAt(segs, sp.first),
		PageStart:      words[sp.carry].page,
		PageEnd:        words[sp.end-1].page,
		Text:           carried + own,
		TokenEstimate:  p.Estimate(weight),
		Index:          index,
		BoundaryForced: sp.forced,
		CarryLen:       len(carried),
	}
}

// sectionAt returns the title of the last heading starting at or before word w.
func sectionAt(segs []segment, w int) string {
	title := ""
	for _, s := range segs {
		if s.first > w {
			break
		}
		if s.heading {
			title = s.title
		}
	}
	return title
}
