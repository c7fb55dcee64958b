package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	BridgeURL             string
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	DomainConfigPath      string
	CausalGraphPath       string
	ReportDir             string
	BatchSize             int
	DefaultMonths         int
	DefaultLanguage       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.BridgeURL, "bridge-url", "", "base URL of the farm data bridge service")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.DomainConfigPath, "domain-config-path", "", "path to the domain KPI catalog JSON (empty = built-in defaults)")
	fs.StringVar(&c.CausalGraphPath, "causal-graph-path", "", "path to the causal KPI graph JSON (empty = no causal expansion)")
	fs.StringVar(&c.ReportDir, "report-dir", "reports", "directory for generated PDF reports")
	fs.IntVar(&c.BatchSize, "batch-size", 4, "KPI codes per summary request (1..50)")
	fs.IntVar(&c.DefaultMonths, "default-months", 4, "default analysis window in months (1..36)")
	fs.StringVar(&c.DefaultLanguage, "default-language", "es", "default report language code")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Bridge URL is required for KPI data access
	if c.BridgeURL == "" {
		errs = append(errs, errors.New("BRIDGE_URL is required"))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.BatchSize <= 0 || c.BatchSize > 50 {
		errs = append(errs, fmt.Errorf("invalid BATCH_SIZE %d (must be 1..50)", c.BatchSize))
	}
	if c.DefaultMonths <= 0 || c.DefaultMonths > 36 {
		errs = append(errs, fmt.Errorf("invalid DEFAULT_MONTHS %d (must be 1..36)", c.DefaultMonths))
	}
	if c.DefaultLanguage == "" {
		errs = append(errs, errors.New("DEFAULT_LANGUAGE is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
