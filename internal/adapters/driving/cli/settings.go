package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// oracleProviders lists the providers offered by the wizard.
var oracleProviders = []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderAnthropic, domain.AIProviderOpenAI}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage configuration",
	Long: `View and change canon configuration. Values are stored in the TOML
config file (--config, default ./canon.toml).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value...]",
	Short: "Set a configuration value",
	Long: `Sets one configuration value. List values take several arguments or a
comma-separated string. The change is validated before it is saved.

Examples:
  canon settings set chunking.min_tokens 250
  canon settings set ingest.include "manuals/**/*.pdf" "notes/*"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsOracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Configure the draft oracle",
	Long: `Interactively choose the oracle provider used by "canon synth".
The oracle only ever writes drafts.`,
	Args: cobra.NoArgs,
	RunE: runSettingsOracle,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsOracleCmd)
	for _, c := range append(settingsCmd.Commands(), settingsCmd) {
		c.Annotations = map[string]string{settingsOnly: "true"}
	}
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n\n", settingsService.Path())

	cmd.Println("[Paths]")
	cmd.Printf("  Root:      %s\n", settings.Paths.Root)
	cmd.Printf("  Sources:   %s\n", settings.Paths.Sources)
	cmd.Printf("  Extracted: %s\n", settings.Paths.Extracted)
	cmd.Printf("  Store:     %s\n", settings.Paths.Store)
	cmd.Printf("  Prompts:   %s\n", settings.Paths.Prompts)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Tokens: %d-%d (factor %.2f)\n",
		settings.Chunking.MinTokens, settings.Chunking.MaxTokens, settings.Chunking.TokenFactor)
	cmd.Printf("  Carry sentences: %d\n", settings.Chunking.CarrySentences)
	cmd.Printf("  Heading patterns: %s\n", strings.Join(settings.Chunking.HeadingPatterns, "  "))
	cmd.Printf("  Processors: %s\n", strings.Join(settings.Chunking.Processors, ", "))
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Include: %s\n", strings.Join(settings.Ingest.Include, ", "))
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)
	cmd.Printf("  pdftotext: %s\n", settings.Ingest.PDFToText)
	cmd.Println()

	cmd.Println("[Oracle]")
	oracle := settings.Oracle
	if oracle.Provider == "" {
		cmd.Println("  Provider: (none, synthesis disabled)")
	} else {
		cmd.Printf("  Provider: %s\n", oracle.Provider.Description())
		cmd.Printf("  Model: %s\n", oracle.Model)
		if oracle.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", oracle.BaseURL)
		}
		if oracle.Provider.RequiresAPIKey() {
			if oracle.APIKey != "" {
				cmd.Printf("  API Key: %s\n", maskAPIKey(oracle.APIKey))
			} else {
				cmd.Printf("  API Key: (not set)\n")
			}
		}
		cmd.Printf("  Timeout: %ds, %d request(s)/min, %d chunk(s) per call\n",
			oracle.TimeoutSeconds, oracle.RequestsPerMinute, oracle.MaxChunks)
		status := "configured"
		if !oracle.IsConfigured() {
			status = "not configured"
		}
		cmd.Printf("  Status: %s\n", status)
	}
	cmd.Println()

	cmd.Println("[MCP]")
	addr := settings.MCP.HTTPAddr
	if addr == "" {
		addr = "(stdio)"
	}
	cmd.Printf("  HTTP address: %s\n", addr)
	cmd.Println()

	cmd.Printf("Verbose logging: %t\n", settings.Verbose)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	key := args[0]
	var value any = args[1]
	if len(args) > 2 {
		value = args[1:]
	}
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s in %s\n", key, settingsService.Path())
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsOracle(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	return configureOracle(cmd, reader)
}

func configureOracle(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Oracle Provider")
	for i, p := range oracleProviders {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(oracleProviders), 1)
	provider := oracleProviders[idx-1]

	cmd.Print("Enter model name [provider default]: ")
	model := readLine(reader)

	var baseURL string
	switch provider {
	case domain.AIProviderOllama:
		cmd.Print("Enter base URL [http://localhost:11434]: ")
		baseURL = readLine(reader)
	case domain.AIProviderOpenAI:
		cmd.Print("Enter base URL [https://api.openai.com/v1]: ")
		baseURL = readLine(reader)
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		env := provider.APIKeyEnv()
		cmd.Printf("Enter API key (empty to use %s): ", env)
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" && os.Getenv(env) == "" {
			return errors.New("API key is required for this provider")
		}
	}

	values := [][2]string{
		{"oracle.provider", provider.String()},
		{"oracle.model", model},
		{"oracle.base_url", baseURL},
		{"oracle.api_key", apiKey},
	}
	for _, kv := range values {
		if kv[1] == "" && kv[0] != "oracle.provider" {
			continue
		}
		if err := settingsService.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to configure oracle: %w", err)
		}
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateOracle(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("oracle configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Oracle configured: %s\n", provider.Description())
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
