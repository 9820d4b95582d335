// Package cli implements the canon command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Flags shared by every command.
var (
	configPath string
	verbose    bool
	logFile    string
)

// logCloser closes the --log-file sink, if one is open.
var logCloser func() error

// Service ports used by the commands. They are set by SetServices or by
// the factory on first use.
var (
	ingestService      driving.IngestService
	searchService      driving.SearchService
	lookupService      driving.LookupService
	topicAssembler     driving.TopicAssembler
	curationService    driving.CurationService
	citationLedger     driving.CitationLedger
	maintenanceService driving.MaintenanceService
	synthesisService   driving.SynthesisService
	settingsService    driving.SettingsService
	metricsHandler     http.Handler
)

// Services aggregates every port the CLI drives.
type Services struct {
	Ingest      driving.IngestService
	Search      driving.SearchService
	Lookup      driving.LookupService
	Assembler   driving.TopicAssembler
	Curation    driving.CurationService
	Ledger      driving.CitationLedger
	Maintenance driving.MaintenanceService
	Synthesis   driving.SynthesisService
	Settings    driving.SettingsService

	// Metrics is served by "mcp serve" in HTTP mode. Optional.
	Metrics http.Handler

	// Close releases stores and adapters. Optional.
	Close func() error
}

// Factory builds services for the config file at path ("" for the default).
// On error it may still return services holding at least Settings.
type Factory func(path string) (*Services, error)

var (
	factory       Factory
	closeServices func() error
)

// Command annotations. skipServices marks commands that run without a
// knowledge base; settingsOnly marks commands that only need settings and
// must keep working when the rest of the configuration is broken.
const (
	skipServices = "skip-services"
	settingsOnly = "settings-only"
)

var rootCmd = &cobra.Command{
	Use:   "canon",
	Short: "Citation-grounded knowledge base curation",
	Long: `canon turns source documents into cited chunks, lets humans curate
typed knowledge artifacts and topic dossiers on top of them, and answers
lookups from curated content only.

Drafts, whether written by hand or proposed by an oracle, never become
authoritative until a named reviewer promotes them.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./canon.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"append debug logs to this file instead of stderr (implies --verbose)")
}

// SetServices injects the ports used by the commands.
func SetServices(s *Services) {
	ingestService = s.Ingest
	searchService = s.Search
	lookupService = s.Lookup
	topicAssembler = s.Assembler
	curationService = s.Curation
	citationLedger = s.Ledger
	maintenanceService = s.Maintenance
	synthesisService = s.Synthesis
	settingsService = s.Settings
	metricsHandler = s.Metrics
	closeServices = s.Close
}

// SetFactory registers a builder that runs before the first command that
// needs services and after flags are parsed.
func SetFactory(f Factory) {
	factory = f
}

func initServices(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	if factory == nil || cmd.Annotations[skipServices] == "true" {
		return nil
	}
	s, err := factory(configPath)
	factory = nil
	if s != nil {
		SetServices(s)
	}
	if err != nil {
		if cmd.Annotations[settingsOnly] == "true" && settingsService != nil {
			logger.Warn("configuration incomplete: %v", err)
			return nil
		}
		return err
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Verbose {
			logger.SetVerbose(true)
		}
	}
	logger.Debug("services ready (config %q)", configPath)
	return nil
}

// setupLogging applies --verbose and --log-file.
func setupLogging() error {
	if err := closeLog(); err != nil {
		return err
	}
	if verbose {
		logger.SetVerbose(true)
	}
	if logFile == "" {
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	logger.SetTimestamps(true)
	logger.SetVerbose(true)
	logCloser = f.Close
	return nil
}

// closeLog restores stderr logging and closes the log file.
func closeLog() error {
	if logCloser == nil {
		return nil
	}
	logger.SetOutput(os.Stderr)
	logger.SetTimestamps(false)
	err := logCloser()
	logCloser = nil
	return err
}

// quietLogs silences stderr debug logging while a full-screen program owns
// the terminal. Logs sent to --log-file are kept.
func quietLogs(cmd *cobra.Command) (restore func()) {
	if !logger.IsVerbose() || logFile != "" {
		return func() {}
	}
	cmd.PrintErrln("debug logs are hidden while browsing; pass --log-file to keep them")
	logger.SetOutput(io.Discard)
	return func() { logger.SetOutput(os.Stderr) }
}

// Execute runs the root command and releases services afterwards.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	err := rootCmd.Execute()
	if closeServices != nil {
		err = errors.Join(err, closeServices())
		closeServices = nil
	}
	return errors.Join(err, closeLog())
}

// errNotConfigured reports a service the current build did not wire.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
