package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Importer    ImporterConfig  `toml:"importer"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level         string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`                                             // "json" or "text"
	Output        []string `toml:"output"`                                             // "stdout", "file"
	MinEventLevel string   `toml:"min_event_level"`                                    // Minimum log level to broadcast to connected UI clients
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig represents the relational store holding bookmarks, categories and sessions
type SQLiteConfig struct {
	Path string `toml:"path" validate:"required"` // Database file path
}

// BadgerConfig represents the BadgerDB metadata cache configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Cache directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete cache on startup for clean test runs
}

// FetcherConfig contains page metadata fetching configuration
type FetcherConfig struct {
	UserAgent    string        `toml:"user_agent"`                          // Desktop browser user agent string
	Concurrency  int           `toml:"concurrency" validate:"gte=1,lte=64"` // Maximum concurrent fetches
	HeadTimeout  time.Duration `toml:"head_timeout"`                        // HEAD reachability check timeout
	ProbeTimeout time.Duration `toml:"probe_timeout"`                       // GET fallback reachability check timeout
	FetchTimeout time.Duration `toml:"fetch_timeout"`                       // Full page download timeout
	MaxRedirects int           `toml:"max_redirects"`                       // Maximum redirects to follow
	MaxBodySize  int           `toml:"max_body_size"`                       // Maximum response body size in bytes
	RequestDelay time.Duration `toml:"request_delay"`                       // Minimum delay between requests to same domain
	CacheTTL     time.Duration `toml:"cache_ttl"`                           // How long fetched metadata stays fresh in the cache
}

// ImporterConfig contains import pipeline configuration
type ImporterConfig struct {
	Concurrency   int           `toml:"concurrency" validate:"gte=1,lte=32"` // Number of concurrent bookmark workers
	BatchSize     int           `toml:"batch_size"`                          // Bookmarks per AI assignment request
	PauseEvery    int           `toml:"pause_every"`                         // Pause after this many processed bookmarks
	PauseMin      time.Duration `toml:"pause_min"`                           // Minimum pause duration
	PauseJitter   time.Duration `toml:"pause_jitter"`                        // Random jitter added to each pause
	ProgressEvery int           `toml:"progress_every"`                      // Progress event frequency during bulk assignment
	MaxUploadSize int           `toml:"max_upload_size"`                     // Maximum accepted archive size in bytes
}

// GeminiConfig contains Google Gemini API configuration for AI services
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-3-flash-preview")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 16384)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for AI services
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key for Claude operations
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 16384)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Default provider: "gemini" or "claude" (default: "gemini")
}

// SchedulerConfig contains background maintenance configuration
type SchedulerConfig struct {
	Enabled              bool   `toml:"enabled"`                // Run background maintenance jobs
	SessionRetentionDays int    `toml:"session_retention_days"` // Delete import sessions older than this
	SessionPruneSchedule string `toml:"session_prune_schedule"` // Cron schedule for session pruning
	StaleSweepSchedule   string `toml:"stale_sweep_schedule"`   // Cron schedule for the stale enrichment sweep
	StaleAfterDays       int    `toml:"stale_after_days"`       // Mark bookmark metadata stale after this many days
}

// WebSocketConfig contains configuration for WebSocket log streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in fury.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development", // Default to development mode - allows test URLs
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:         "info",                     // Info level for production (debug|info|warn|error)
			Format:        "text",                     // Human-readable text format (text|json)
			Output:        []string{"stdout", "file"}, // Log to both console and file
			MinEventLevel: "info",                     // Broadcast info and above to UI clients
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path: "./data/fury.db",
			},
			Badger: BadgerConfig{
				Path: "./data/cache",
			},
		},
		Fetcher: FetcherConfig{
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Concurrency:  5,
			HeadTimeout:  5 * time.Second,
			ProbeTimeout: 8 * time.Second,
			FetchTimeout: 10 * time.Second,
			MaxRedirects: 5,
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			RequestDelay: 200 * time.Millisecond,
			CacheTTL:     24 * time.Hour,
		},
		Importer: ImporterConfig{
			Concurrency:   5,
			BatchSize:     50, // Bookmarks per AI assignment batch
			PauseEvery:    5,
			PauseMin:      500 * time.Millisecond,
			PauseJitter:   500 * time.Millisecond,
			ProgressEvery: 10,
			MaxUploadSize: 20 * 1024 * 1024, // 20MB
		},
		Gemini: GeminiConfig{
			APIKey:      "",                       // User must provide API key (no fallback)
			Model:       "gemini-3-flash-preview", // Model for AI operations
			MaxTokens:   16384,                    // Large enough for full taxonomy responses
			Timeout:     "5m",                     // 5 minutes for operations
			RateLimit:   "4s",                     // Default to 4s (15 RPM) for free tier
			Temperature: 0.7,                      // Default temperature
		},
		Claude: ClaudeConfig{
			APIKey:      "",                          // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022", // Model for AI operations
			MaxTokens:   16384,                       // Large enough for full taxonomy responses
			Timeout:     "5m",                        // 5 minutes for operations
			RateLimit:   "1s",                        // Default rate limit
			Temperature: 0.7,                         // Default temperature
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini, // Default to Gemini
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			SessionRetentionDays: 90,
			SessionPruneSchedule: "0 3 * * *", // Daily at 03:00
			StaleSweepSchedule:   "30 3 * * *",
			StaleAfterDays:       30,
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info", // Default: info level and above
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: FURY_ENV, fallback: GO_ENV)
	if env := os.Getenv("FURY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FURY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FURY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("FURY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("FURY_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("FURY_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("FURY_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Storage configuration
	if sqlitePath := os.Getenv("FURY_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if badgerPath := os.Getenv("FURY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Fetcher configuration
	if userAgent := os.Getenv("FURY_FETCHER_USER_AGENT"); userAgent != "" {
		config.Fetcher.UserAgent = userAgent
	}
	if concurrency := os.Getenv("FURY_FETCHER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Fetcher.Concurrency = c
		}
	}
	if headTimeout := os.Getenv("FURY_FETCHER_HEAD_TIMEOUT"); headTimeout != "" {
		if ht, err := time.ParseDuration(headTimeout); err == nil {
			config.Fetcher.HeadTimeout = ht
		}
	}
	if probeTimeout := os.Getenv("FURY_FETCHER_PROBE_TIMEOUT"); probeTimeout != "" {
		if pt, err := time.ParseDuration(probeTimeout); err == nil {
			config.Fetcher.ProbeTimeout = pt
		}
	}
	if fetchTimeout := os.Getenv("FURY_FETCHER_FETCH_TIMEOUT"); fetchTimeout != "" {
		if ft, err := time.ParseDuration(fetchTimeout); err == nil {
			config.Fetcher.FetchTimeout = ft
		}
	}
	if maxRedirects := os.Getenv("FURY_FETCHER_MAX_REDIRECTS"); maxRedirects != "" {
		if mr, err := strconv.Atoi(maxRedirects); err == nil {
			config.Fetcher.MaxRedirects = mr
		}
	}
	if maxBodySize := os.Getenv("FURY_FETCHER_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.Atoi(maxBodySize); err == nil {
			config.Fetcher.MaxBodySize = mbs
		}
	}
	if requestDelay := os.Getenv("FURY_FETCHER_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.Fetcher.RequestDelay = rd
		}
	}
	if cacheTTL := os.Getenv("FURY_FETCHER_CACHE_TTL"); cacheTTL != "" {
		if ttl, err := time.ParseDuration(cacheTTL); err == nil {
			config.Fetcher.CacheTTL = ttl
		}
	}

	// Importer configuration
	if concurrency := os.Getenv("FURY_IMPORTER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Importer.Concurrency = c
		}
	}
	if batchSize := os.Getenv("FURY_IMPORTER_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Importer.BatchSize = bs
		}
	}
	if maxUploadSize := os.Getenv("FURY_IMPORTER_MAX_UPLOAD_SIZE"); maxUploadSize != "" {
		if mus, err := strconv.Atoi(maxUploadSize); err == nil {
			config.Importer.MaxUploadSize = mus
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("FURY_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("FURY_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if maxTokens := os.Getenv("FURY_GEMINI_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Gemini.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("FURY_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("FURY_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("FURY_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("FURY_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // FURY_ prefix takes priority
	}
	if model := os.Getenv("FURY_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("FURY_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("FURY_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("FURY_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("FURY_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("FURY_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Scheduler configuration
	if enabled := os.Getenv("FURY_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if retention := os.Getenv("FURY_SCHEDULER_SESSION_RETENTION_DAYS"); retention != "" {
		if r, err := strconv.Atoi(retention); err == nil {
			config.Scheduler.SessionRetentionDays = r
		}
	}
	if staleAfter := os.Getenv("FURY_SCHEDULER_STALE_AFTER_DAYS"); staleAfter != "" {
		if s, err := strconv.Atoi(staleAfter); err == nil {
			config.Scheduler.StaleAfterDays = s
		}
	}

	// WebSocket configuration
	if minLevel := os.Getenv("FURY_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
	if excludePatterns := os.Getenv("FURY_WEBSOCKET_EXCLUDE_PATTERNS"); excludePatterns != "" {
		// Split comma-separated patterns
		patterns := []string{}
		for _, p := range splitString(excludePatterns, ",") {
			trimmed := trimSpace(p)
			if trimmed != "" {
				patterns = append(patterns, trimmed)
			}
		}
		if len(patterns) > 0 {
			config.WebSocket.ExcludePatterns = patterns
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration using go-playground/validator tags
// plus cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("invalid llm.default_provider %q (expected \"gemini\" or \"claude\")", c.LLM.DefaultProvider)
	}

	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.SessionPruneSchedule); err != nil {
			return fmt.Errorf("invalid scheduler.session_prune_schedule: %w", err)
		}
		if err := ValidateSchedule(c.Scheduler.StaleSweepSchedule); err != nil {
			return fmt.Errorf("invalid scheduler.stale_sweep_schedule: %w", err)
		}
	}

	return nil
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	// Parse the cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval
	// Validate minute field (first field in standard cron)
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	// Check for patterns that violate 5-minute minimum
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
