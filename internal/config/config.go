// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// Config represents the pipeline configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Thresholds
	AutoAccept         int `json:"auto_accept,omitempty"`          // Domain confidence accepted without review
	NeedsVerification  int `json:"needs_verification,omitempty"`   // Lower bound of the gray zone
	ValidThreshold     int `json:"valid_threshold,omitempty"`      // Minimum contact score for validity
	EarlyExitThreshold int `json:"early_exit_threshold,omitempty"` // Contact score that skips remaining connectors

	// Concurrency and limits
	MaxConcurrency      int            `json:"max_concurrency,omitempty"`         // Worker pool size for company units
	ConnectorTimeoutSec int            `json:"connector_timeout_sec,omitempty"`   // Default per-call timeout, seconds
	ConnectorTimeouts   map[string]int `json:"per_connector_timeout_s,omitempty"` // Per-tag timeout overrides, seconds
	CostBudget          float64        `json:"cost_budget,omitempty"`             // Batch spend cap in dollars, 0 = unlimited
	ConnectorRates      map[string]int `json:"connector_rates,omitempty"`         // Calls per minute per source tag
	EnabledConnectors   []string       `json:"enabled_connectors,omitempty"`      // Source tags to invoke; empty = all

	// Credentials and endpoints
	PlacesAPIKey     string `json:"places_api_key,omitempty"`    // Maps/places API key
	SearchAPIKey     string `json:"search_api_key,omitempty"`    // Programmable-search API key
	SearchEngineID   string `json:"search_engine_id,omitempty"`  // Programmable-search engine ID
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`    // LLM key for deep verification
	DirectoryAPIKey  string `json:"directory_api_key,omitempty"` // Business-registry API key
	DirectoryBaseURL string `json:"directory_base_url,omitempty"`
	DatabaseURL      string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Behavior
	IndustrySuffixes []string `json:"industry_suffixes,omitempty"` // Extra company-name suffixes for the matcher
	UseBrowser       bool     `json:"use_browser,omitempty"`       // Headless browser fallback for SPA sites
	Verbose          bool     `json:"verbose,omitempty"`           // Print detailed debug information
	ReviewOutput     string   `json:"review_output,omitempty"`     // Path for the manual-review stream
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required credentials are checked later, per enabled connector, after merging.
func (c *Config) Validate() error {
	if c.AutoAccept < 0 || c.AutoAccept > 100 {
		return fmt.Errorf("config error: 'auto_accept' must be in [0,100]")
	}
	if c.NeedsVerification < 0 || c.NeedsVerification > 100 {
		return fmt.Errorf("config error: 'needs_verification' must be in [0,100]")
	}
	if c.AutoAccept != 0 && c.NeedsVerification != 0 && c.NeedsVerification >= c.AutoAccept {
		return fmt.Errorf("config error: 'needs_verification' must be below 'auto_accept'")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("config error: 'max_concurrency' must be non-negative")
	}
	if c.ConnectorTimeoutSec < 0 {
		return fmt.Errorf("config error: 'connector_timeout_sec' must be non-negative")
	}
	if c.CostBudget < 0 {
		return fmt.Errorf("config error: 'cost_budget' must be non-negative")
	}

	for _, tag := range c.EnabledConnectors {
		if !types.IsValidSource(types.SourceTag(tag)) {
			return fmt.Errorf("config error: unknown connector %q", tag)
		}
	}
	for tag := range c.ConnectorRates {
		if !types.IsValidSource(types.SourceTag(tag)) {
			return fmt.Errorf("config error: unknown connector %q in 'connector_rates'", tag)
		}
	}
	for tag, secs := range c.ConnectorTimeouts {
		if !types.IsValidSource(types.SourceTag(tag)) {
			return fmt.Errorf("config error: unknown connector %q in 'per_connector_timeout_s'", tag)
		}
		if secs < 0 {
			return fmt.Errorf("config error: 'per_connector_timeout_s' for %q must be non-negative", tag)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// Int fields: use default if zero.
	if result.AutoAccept == 0 {
		result.AutoAccept = defaults.AutoAccept
	}
	if result.NeedsVerification == 0 {
		result.NeedsVerification = defaults.NeedsVerification
	}
	if result.ValidThreshold == 0 {
		result.ValidThreshold = defaults.ValidThreshold
	}
	if result.EarlyExitThreshold == 0 {
		result.EarlyExitThreshold = defaults.EarlyExitThreshold
	}
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}
	if result.ConnectorTimeoutSec == 0 {
		result.ConnectorTimeoutSec = defaults.ConnectorTimeoutSec
	}
	if result.CostBudget == 0 {
		result.CostBudget = defaults.CostBudget
	}

	// String fields: use default if empty.
	if result.PlacesAPIKey == "" {
		result.PlacesAPIKey = defaults.PlacesAPIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.DirectoryAPIKey == "" {
		result.DirectoryAPIKey = defaults.DirectoryAPIKey
	}
	if result.DirectoryBaseURL == "" {
		result.DirectoryBaseURL = defaults.DirectoryBaseURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ReviewOutput == "" {
		result.ReviewOutput = defaults.ReviewOutput
	}

	// Slice and map fields: use default if unset.
	if len(result.EnabledConnectors) == 0 {
		result.EnabledConnectors = defaults.EnabledConnectors
	}
	if len(result.IndustrySuffixes) == 0 {
		result.IndustrySuffixes = defaults.IndustrySuffixes
	}
	if len(result.ConnectorRates) == 0 {
		result.ConnectorRates = defaults.ConnectorRates
	}
	if len(result.ConnectorTimeouts) == 0 {
		result.ConnectorTimeouts = defaults.ConnectorTimeouts
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools).

	return result
}

// DefaultConfig returns the production defaults for every tunable.
func DefaultConfig() Config {
	return Config{
		AutoAccept:          85,
		NeedsVerification:   50,
		ValidThreshold:      70,
		EarlyExitThreshold:  85,
		MaxConcurrency:      10,
		ConnectorTimeoutSec: 30,
	}
}
