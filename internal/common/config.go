package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Refresh     RefreshConfig `toml:"refresh"`
	Market      MarketConfig  `toml:"market"`
	EODHD       EODHDConfig   `toml:"eodhd"`
	LLM         LLMConfig     `toml:"llm"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Claude      ClaudeConfig  `toml:"claude"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// RefreshConfig controls a single refresh cycle over the collection
type RefreshConfig struct {
	PacingDelay  string   `toml:"pacing_delay"`  // Delay between tickers, e.g. "4s" (free-tier model quota)
	NewsLimit    int      `toml:"news_limit"`    // Headlines fetched per ticker (default: 3)
	RecentDays   int      `toml:"recent_days"`   // Trading days used for the fallback price window (default: 5)
	ChartPoints  int      `toml:"chart_points"`  // Month-end points kept on the chart (default: 12)
	EPSYears     int      `toml:"eps_years"`     // Fiscal years in the EPS trend; 0 disables it (default: 4)
	SeedIDs      []string `toml:"seed_ids"`      // Tickers used when the collection is empty and nothing is added
	TimeLocation string   `toml:"time_location"` // IANA zone for lastUpdated stamps (default: "Local")
	HistoryDepth int      `toml:"history_depth"` // Run summaries kept in the KV store; 0 keeps all (default: 20)
}

// MarketConfig contains ticker resolution settings
type MarketConfig struct {
	DefaultExchange string `toml:"default_exchange"` // Exchange assumed for bare codes (default: "TW")
}

// EODHDConfig contains EODHD market data API configuration
type EODHDConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"` // Requests per second
	Timeout   string `toml:"timeout"`    // HTTP timeout as duration string (default: "30s")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains provider selection and candidate ranking overrides
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
	Timeout         string      `toml:"timeout"`          // Per-candidate call timeout (default: "2m")
	PreviewMarkers  []string    `toml:"preview_markers"`  // Overrides the provider's preview tier markers
	HighMarkers     []string    `toml:"high_markers"`     // Overrides the provider's high-capability tier markers
	FastMarkers     []string    `toml:"fast_markers"`     // Overrides the provider's fast tier markers
	DefaultModels   []string    `toml:"default_models"`   // Overrides the fallback ordering used when the catalog is unavailable
	Language        string      `toml:"language"`         // Language of generated commentary (default: "Traditional Chinese")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Temperature float32 `toml:"temperature"` // Generation temperature (default: 0.4)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.4)
}

// StorageConfig selects where the collection is persisted
type StorageConfig struct {
	Type   string       `toml:"type"` // "file" (default) or "badger"
	File   FileConfig   `toml:"file"`
	Badger BadgerConfig `toml:"badger"`
}

// FileConfig is the JSON collection file read by the display layer
type FileConfig struct {
	Path string `toml:"path"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for log lines (default: "15:04:05")
	FilePath   string   `toml:"file_path"`   // Log file path when "file" output is enabled
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Refresh: RefreshConfig{
			PacingDelay:  "4s", // 15 RPM free tier
			NewsLimit:    3,
			RecentDays:   5,
			ChartPoints:  12,
			EPSYears:     4,
			SeedIDs:      []string{"2330", "2317", "2454"},
			TimeLocation: "Local",
			HistoryDepth: 20,
		},
		Market: MarketConfig{
			DefaultExchange: "TW",
		},
		EODHD: EODHDConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
			Timeout:   "30s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			Timeout:         "2m",
			Language:        "Traditional Chinese",
		},
		Gemini: GeminiConfig{
			Temperature: 0.4,
		},
		Claude: ClaudeConfig{
			MaxTokens:   4096,
			Temperature: 0.4,
		},
		Storage: StorageConfig{
			Type: "file",
			File: FileConfig{
				Path: "./data.json",
			},
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			FilePath:   "./logs/tickerbrief.log",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// A missing .env is the normal case outside local development
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERBRIEF_ENV"); env != "" {
		config.Environment = env
	}

	// API keys: the bare provider names are what CI secrets usually export
	if v := firstEnv("TICKERBRIEF_EODHD_API_KEY", "EODHD_API_KEY"); v != "" {
		config.EODHD.APIKey = v
	}
	if v := firstEnv("TICKERBRIEF_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := firstEnv("TICKERBRIEF_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}

	if provider := os.Getenv("TICKERBRIEF_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if timeout := os.Getenv("TICKERBRIEF_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}

	if delay := os.Getenv("TICKERBRIEF_PACING_DELAY"); delay != "" {
		config.Refresh.PacingDelay = delay
	}
	if limit := os.Getenv("TICKERBRIEF_NEWS_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Refresh.NewsLimit = n
		}
	}
	if depth := os.Getenv("TICKERBRIEF_HISTORY_DEPTH"); depth != "" {
		if n, err := strconv.Atoi(depth); err == nil && n >= 0 {
			config.Refresh.HistoryDepth = n
		}
	}
	if seeds := os.Getenv("TICKERBRIEF_SEED_IDS"); seeds != "" {
		ids := []string{}
		for _, s := range strings.Split(seeds, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
		config.Refresh.SeedIDs = ids
	}

	if exchange := os.Getenv("TICKERBRIEF_DEFAULT_EXCHANGE"); exchange != "" {
		config.Market.DefaultExchange = strings.ToUpper(exchange)
	}

	if storageType := os.Getenv("TICKERBRIEF_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = strings.ToLower(storageType)
	}
	if path := os.Getenv("TICKERBRIEF_DATA_FILE"); path != "" {
		config.Storage.File.Path = path
	}
	if path := os.Getenv("TICKERBRIEF_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("TICKERBRIEF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("TICKERBRIEF_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, dataFile string, logLevel string) {
	if dataFile != "" {
		config.Storage.File.Path = dataFile
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// GetPacingDelay parses the delay applied between tickers
func (c *RefreshConfig) GetPacingDelay() time.Duration {
	d, err := time.ParseDuration(c.PacingDelay)
	if err != nil || d < 0 {
		return 4 * time.Second
	}
	return d
}

// GetLocation resolves the zone used for lastUpdated stamps
func (c *RefreshConfig) GetLocation() *time.Location {
	if c.TimeLocation == "" || strings.EqualFold(c.TimeLocation, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeLocation)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetTimeout parses and returns the HTTP timeout
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetTimeout parses the per-candidate generation timeout
func (c *LLMConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
