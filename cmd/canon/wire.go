package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/canon/internal/adapters/driven/ai"
	"github.com/custodia-labs/canon/internal/adapters/driven/config/file"
	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/adapters/driven/metrics"
	"github.com/custodia-labs/canon/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/canon/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/canon/internal/adapters/driving/cli"
	fsconnector "github.com/custodia-labs/canon/internal/connectors/filesystem"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/services"
	"github.com/custodia-labs/canon/internal/logger"
	"github.com/custodia-labs/canon/internal/normalisers"
	"github.com/custodia-labs/canon/internal/normalisers/pages"
	"github.com/custodia-labs/canon/internal/normalisers/pdf"
	"github.com/custodia-labs/canon/internal/postprocessors"
)

// Directories below paths.store used by the filesystem backend.
const (
	chunksDir  = "chunks"
	recordsDir = "records"
)

// wire builds every service for the config file at path. When the
// settings themselves are invalid the settings service is still returned
// so "canon settings" can repair them.
func wire(path string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(path)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return &cli.Services{Settings: settingsService}, fmt.Errorf("invalid configuration in %s: %w", configStore.Path(), err)
	}
	logger.Debug("knowledge base root %s (%s backend)", settings.Paths.Root, settings.Storage.Backend)

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return &cli.Services{Settings: settingsService}, err
	}

	chunks, records, closeStore, err := openStores(settings)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	prompts, err := file.NewPromptStore(settings.Paths.Prompts)
	if err != nil {
		return fail(err)
	}
	oracle, err := ai.CreateOracle(&settings.Oracle)
	if err != nil {
		logger.Warn("oracle disabled: %v", err)
		oracle = nil
	}
	if oracle != nil {
		closers = append(closers, oracle.Close)
	}

	pipeline, err := postprocessors.FromSettings(defaultProcessors(), settings.Chunking)
	if err != nil {
		return fail(err)
	}
	logger.Debug("chunking stages: %s", strings.Join(pipeline.Stages(), " -> "))
	extractors := normalisers.NewRegistry(
		pdf.New(pdf.WithTool(settings.Ingest.PDFToText), pdf.WithPageOutput(settings.Paths.Extracted)),
		pages.New(settings.Paths.Extracted),
	)
	sources := fsconnector.New(settings.Paths.Sources, settings.Ingest.Include)
	closers = append(closers, sources.Close)

	recorder := metrics.NewRecorder()
	codec := frontmatter.New()
	ledger := services.NewLedger(chunks, records, codec)
	curation := services.NewCurationService(records, codec, ledger, recorder)

	return &cli.Services{
		Ingest:      services.NewIngestService(sources, extractors, pipeline, chunks, recorder, settings.Ingest.Workers),
		Search:      services.NewSearchService(chunks),
		Lookup:      services.NewLookupService(records, codec, recorder),
		Assembler:   services.NewAssembler(records, codec, ledger),
		Curation:    curation,
		Ledger:      ledger,
		Maintenance: services.NewMaintenanceService(chunks, records, codec, curation, ledger),
		Synthesis:   services.NewSynthesisService(chunks, curation, oracle, prompts, settings.Oracle, recorder),
		Settings:    settingsService,
		Metrics:     recorder.Handler(),
		Close:       closeAll,
	}, nil
}

// openStores opens the chunk and record stores of the configured backend.
func openStores(settings *domain.Settings) (driven.ChunkStore, driven.RecordStore, func() error, error) {
	switch settings.Storage.Backend {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(settings.Paths.Store)
		if err != nil {
			return nil, nil, nil, err
		}
		return store.ChunkStore(), store.RecordStore(), store.Close, nil
	default:
		chunks, err := filesystem.NewChunkStore(filepath.Join(settings.Paths.Store, chunksDir))
		if err != nil {
			return nil, nil, nil, err
		}
		records, err := filesystem.NewRecordStore(filepath.Join(settings.Paths.Store, recordsDir))
		if err != nil {
			return nil, nil, nil, err
		}
		return chunks, records, func() error { return nil }, nil
	}
}

func defaultProcessors() *postprocessors.Registry {
	r := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(r)
	return r
}
