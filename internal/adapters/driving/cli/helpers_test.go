package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driven/config/file"
	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/core/services"
)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	summary *domain.IngestSummary
	events  []driving.WatchEvent
	err     error

	lastRequest driving.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.IngestSummary, error) {
	m.lastRequest = req
	if m.summary == nil {
		return &domain.IngestSummary{}, m.err
	}
	return m.summary, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, _ domain.SourceFile) (*domain.ChunkingStats, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockIngestService) Chunk(_ context.Context, _ *domain.Document) ([]domain.Chunk, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockIngestService) Watch(_ context.Context, report func(driving.WatchEvent)) error {
	for _, ev := range m.events {
		report(ev)
	}
	return m.err
}

// stubOracle proposes a fixed text.
type stubOracle struct {
	text string
}

func (o *stubOracle) ProposeDraft(_ context.Context, _ driven.ProposalContext) (string, error) {
	return o.text, nil
}

func (o *stubOracle) ModelName() string            { return "stub" }
func (o *stubOracle) Ping(_ context.Context) error { return nil }
func (o *stubOracle) Close() error                 { return nil }

// testEnv is a knowledge base wired over in-memory stores.
type testEnv struct {
	chunks   *memory.ChunkStore
	records  *memory.RecordStore
	config   *memory.ConfigStore
	curation *services.CurationService
	ingest   *mockIngestService
	oracle   *stubOracle
}

// setupTestServices wires every command to in-memory services for the
// duration of the test.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		chunks:  memory.NewChunkStore(),
		records: memory.NewRecordStore(),
		config:  memory.NewConfigStore(),
		ingest:  &mockIngestService{},
		oracle:  &stubOracle{text: "Clock gating stops the clock of idle logic [chunk:manual_chunk_0001]."},
	}
	codec := frontmatter.New()
	ledger := services.NewLedger(env.chunks, env.records, codec)
	env.curation = services.NewCurationService(env.records, codec, ledger, nil)

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)

	old := &Services{
		Ingest:      ingestService,
		Search:      searchService,
		Lookup:      lookupService,
		Assembler:   topicAssembler,
		Curation:    curationService,
		Ledger:      citationLedger,
		Maintenance: maintenanceService,
		Synthesis:   synthesisService,
		Settings:    settingsService,
		Metrics:     metricsHandler,
		Close:       closeServices,
	}
	SetServices(&Services{
		Ingest:      env.ingest,
		Search:      services.NewSearchService(env.chunks),
		Lookup:      services.NewLookupService(env.records, codec, nil),
		Assembler:   services.NewAssembler(env.records, codec, ledger),
		Curation:    env.curation,
		Ledger:      ledger,
		Maintenance: services.NewMaintenanceService(env.chunks, env.records, codec, env.curation, ledger),
		Synthesis: services.NewSynthesisService(env.chunks, env.curation, env.oracle, prompts,
			domain.OracleSettings{MaxChunks: 4}, nil),
		Settings: services.NewSettingsService(env.config, nil),
	})
	t.Cleanup(func() { SetServices(old) })
	return env
}

// seed stores one chunk per page for document.
func (e *testEnv) seed(t *testing.T, document string, pages ...string) {
	t.Helper()
	chunks := make([]domain.Chunk, len(pages))
	for i, text := range pages {
		chunks[i] = domain.Chunk{
			ID:             domain.ChunkID(document, i+1),
			SourceDocument: document,
			Section:        "Power",
			PageStart:      i + 1,
			PageEnd:        i + 1,
			Text:           text,
			TokenEstimate:  len(strings.Fields(text)),
			Index:          i + 1,
			Total:          len(pages),
		}
	}
	stats := domain.StatsFor(document, chunks, time.Now())
	require.NoError(t, e.chunks.ReplaceDocument(context.Background(), document, chunks, stats))
}

// drafts returns the pending draft keys of kind.
func (e *testEnv) drafts(t *testing.T, kind string) []string {
	t.Helper()
	keys, err := e.curation.ListDrafts(context.Background(), kind)
	require.NoError(t, err)
	return keys
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
