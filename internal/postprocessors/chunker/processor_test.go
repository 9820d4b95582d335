package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// sentence returns n distinct words ending with a period.
func sentence(tag string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(words, " ") + "."
}

func doc(pages ...string) *domain.Document {
	d := &domain.Document{Name: "manual", ProjectName: "chips", RelativePath: "chips/manual.pdf"}
	for i, p := range pages {
		d.Pages = append(d.Pages, domain.Page{Number: i + 1, Text: p})
	}
	return d
}

func small(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	base := []Option{WithMinTokens(10), WithMaxTokens(20), WithTokenFactor(1.0)}
	p, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func joinOwn(chunks []domain.Chunk) string {
	var b strings.Builder
	for i := range chunks {
		b.WriteString(chunks[i].OwnText())
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p, err := New()
		require.NoError(t, err)
		minTokens, maxTokens := p.Bounds()
		assert.Equal(t, DefaultMinTokens, minTokens)
		assert.Equal(t, DefaultMaxTokens, maxTokens)
		assert.InDelta(t, DefaultTokenFactor, p.tokenFactor, 0.0001)
		assert.Len(t, p.headings, 1)
	})

	t.Run("custom bounds", func(t *testing.T) {
		p, err := New(WithMinTokens(100), WithMaxTokens(200), WithTokenFactor(1.5))
		require.NoError(t, err)
		minTokens, maxTokens := p.Bounds()
		assert.Equal(t, 100, minTokens)
		assert.Equal(t, 200, maxTokens)
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p, err := New(WithMinTokens(0), WithMaxTokens(-1), WithTokenFactor(0))
		require.NoError(t, err)
		minTokens, maxTokens := p.Bounds()
		assert.Equal(t, DefaultMinTokens, minTokens)
		assert.Equal(t, DefaultMaxTokens, maxTokens)
	})

	t.Run("min above max rejected", func(t *testing.T) {
		_, err := New(WithMinTokens(900))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("factor wider than range rejected", func(t *testing.T) {
		_, err := New(WithMinTokens(10), WithMaxTokens(20), WithTokenFactor(10))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("bad heading pattern rejected", func(t *testing.T) {
		_, err := New(WithHeadingPatterns("(("))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestProcessor_Name(t *testing.T) {
	p := small(t)
	assert.Equal(t, "chunker", p.Name())
}

func TestProcessor_Estimate(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	assert.Equal(t, 0, p.Estimate(0))
	assert.Equal(t, 13, p.Estimate(10))
	assert.Equal(t, 3, p.Estimate(3))
	assert.Equal(t, 2, p.EstimateText("## Reset\n- clock ."))
}

func TestProcessor_Process_NilDocument(t *testing.T) {
	_, err := small(t).Process(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := small(t)

	chunks, err := p.Process(context.Background(), doc(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = p.Process(context.Background(), doc("", "  \n\t "), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_Process_ShorterThanMinimum(t *testing.T) {
	p := small(t)
	d := doc(sentence("a", 4), "", sentence("b", 3))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "manual_chunk_0001", c.ID)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, "manual", c.SourceDocument)
	assert.Equal(t, "chips", c.ProjectName)
	assert.Equal(t, "chips/manual.pdf", c.RelativePath)
	assert.Equal(t, 1, c.PageStart)
	assert.Equal(t, 3, c.PageEnd)
	assert.Equal(t, 7, c.TokenEstimate)
	assert.Equal(t, d.Text(), c.Text)
	assert.False(t, c.BoundaryForced)
}

func TestProcessor_Process_SplitsAtHeading(t *testing.T) {
	p := small(t)
	d := doc(sentence("a", 10), "## Reset\n"+sentence("b", 12))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, sentence("a", 10)+"\n\n", chunks[0].Text)
	assert.Equal(t, 10, chunks[0].TokenEstimate)
	assert.Equal(t, "", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)

	assert.True(t, strings.HasPrefix(chunks[1].Text, "## Reset\n"))
	assert.Equal(t, 13, chunks[1].TokenEstimate)
	assert.Equal(t, "Reset", chunks[1].Section)
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)

	assert.Equal(t, d.Text(), joinOwn(chunks))
}

func TestProcessor_Process_DefaultBoundsHeadingScenario(t *testing.T) {
	// 900 estimated tokens over two pages with one heading near token 400.
	p, err := New()
	require.NoError(t, err)

	var first, second []string
	for i := 0; i < 10; i++ {
		first = append(first, sentence(fmt.Sprintf("p%d", i), 31))
	}
	first = append(first, sentence("tail", 4))
	for i := 0; i < 12; i++ {
		second = append(second, sentence(fmt.Sprintf("q%d", i), 32))
	}
	second = append(second, sentence("end", 7))
	d := doc(strings.Join(first, " "), "## Clock Gating\n"+strings.Join(second, " "))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, p.Estimate(314), chunks[0].TokenEstimate)
	assert.Equal(t, "Clock Gating", chunks[1].Section)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.TokenEstimate, 300)
		assert.LessOrEqual(t, c.TokenEstimate, 800)
	}

	again, err := p.Process(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestProcessor_Process_SentenceBoundaryAtMinimum(t *testing.T) {
	p := small(t)
	var parts []string
	for i := 0; i < 5; i++ {
		parts = append(parts, sentence(fmt.Sprintf("s%d", i), 6))
	}
	d := doc(strings.Join(parts, " "))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 12, chunks[0].TokenEstimate)
	assert.Equal(t, 18, chunks[1].TokenEstimate)
	assert.True(t, strings.HasSuffix(chunks[0].Text, ". "))
	assert.False(t, chunks[0].BoundaryForced)
	assert.Equal(t, d.Text(), joinOwn(chunks))
}

func TestProcessor_Process_ForcedBoundary(t *testing.T) {
	p := small(t)
	words := make([]string, 50)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	d := doc(strings.Join(words, " "))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.True(t, chunks[0].BoundaryForced)
	assert.True(t, chunks[1].BoundaryForced)
	assert.False(t, chunks[2].BoundaryForced)
	assert.Equal(t, 20, chunks[0].TokenEstimate)
	assert.Equal(t, 20, chunks[1].TokenEstimate)
	assert.Equal(t, 10, chunks[2].TokenEstimate)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w20 "))
	assert.Equal(t, d.Text(), joinOwn(chunks))
}

func TestProcessor_Process_HeadingMergedForward(t *testing.T) {
	p := small(t)
	body := sentence("x", 6) + " " + sentence("y", 6) + " " + sentence("z", 6)
	d := doc(sentence("a", 6) + " " + sentence("b", 6) + "\n\n## A\n\n## B\n" + body)

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, sentence("a", 6)+" "+sentence("b", 6)+"\n\n", chunks[0].Text)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "## A\n\n## B\n"))
	assert.Equal(t, "A", chunks[1].Section)
	assert.Equal(t, 20, chunks[1].TokenEstimate)
}

func TestProcessor_Process_SentenceCarry(t *testing.T) {
	p := small(t, WithCarrySentences(1))
	var parts []string
	for i := 0; i < 8; i++ {
		parts = append(parts, sentence(fmt.Sprintf("s%d", i), 4))
	}
	d := doc(strings.Join(parts, " "))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Zero(t, chunks[0].CarryLen)
	assert.Equal(t, 12, chunks[0].TokenEstimate)

	assert.Equal(t, len(parts[2])+1, chunks[1].CarryLen)
	assert.True(t, strings.HasPrefix(chunks[1].Text, parts[2]+" "+parts[3]))
	assert.Equal(t, 12, chunks[1].TokenEstimate)

	assert.True(t, strings.HasPrefix(chunks[2].Text, parts[4]+" "+parts[5]))
	assert.Equal(t, 16, chunks[2].TokenEstimate)

	assert.Equal(t, d.Text(), joinOwn(chunks))
}

func TestProcessor_Process_PageSpan(t *testing.T) {
	p := small(t)
	d := doc(sentence("a", 3), sentence("b", 3), sentence("c", 3))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 3, chunks[0].PageEnd)
}

func TestProcessor_Process_Invariants(t *testing.T) {
	p, err := New(WithMinTokens(40), WithMaxTokens(90), WithTokenFactor(1.3))
	require.NoError(t, err)

	var pages []string
	for pg := 0; pg < 12; pg++ {
		var b strings.Builder
		if pg%3 == 0 {
			fmt.Fprintf(&b, "## Section %d\n", pg)
		}
		for s := 0; s < 7; s++ {
			b.WriteString(sentence(fmt.Sprintf("p%ds%d", pg, s), 3+(pg*s)%11))
			b.WriteString(" ")
		}
		if pg%5 == 4 {
			b.WriteString(strings.Repeat("run ", 120))
		}
		pages = append(pages, b.String())
	}
	d := doc(pages...)

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, d.Text(), joinOwn(chunks))
	for i, c := range chunks {
		assert.Equal(t, domain.ChunkID("manual", i+1), c.ID)
		assert.Equal(t, len(chunks), c.Total)
		assert.LessOrEqual(t, c.TokenEstimate, 90, c.ID)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, c.TokenEstimate, 40, c.ID)
		}
		assert.LessOrEqual(t, c.PageStart, c.PageEnd)
		assert.Equal(t, p.EstimateText(c.Text), c.TokenEstimate)
	}

	again, err := p.Process(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestProcessor_Process_CustomHeadingPattern(t *testing.T) {
	p := small(t, WithHeadingPatterns(`^(?:SECTION|Section)\s+\d+[.:]?\s*(.*)$`))
	d := doc(sentence("a", 10), "SECTION 4: Power Domains\n"+sentence("b", 12))

	chunks, err := p.Process(context.Background(), d, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Power Domains", chunks[1].Section)
}

func TestProcessor_Process_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := small(t).Process(ctx, doc(sentence("a", 5)), nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEndsSentence(t *testing.T) {
	assert.True(t, endsSentence("done."))
	assert.True(t, endsSentence("really?"))
	assert.True(t, endsSentence(`"stop!"`))
	assert.True(t, endsSentence("(see above.)"))
	assert.False(t, endsSentence("3.5"))
	assert.False(t, endsSentence("word"))
	assert.False(t, endsSentence(")"))
}
