package model

// Config is the full engine configuration, layered by the CLI from flags,
// CITEGUARD_* environment variables, the config file, and these defaults.
type Config struct {
	Legal    LegalAPIConfig     `yaml:"legal" mapstructure:"legal"`
	LLM      LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Batch    BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Retry    RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Circuit  CircuitConfig      `yaml:"circuit" mapstructure:"circuit"`
	Cache    CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Holding  HoldingConfig      `yaml:"holding" mapstructure:"holding"`
	Store    StoreConfig        `yaml:"store" mapstructure:"store"`
	Audit    AuditConfig        `yaml:"audit" mapstructure:"audit"`
	Logging  LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// LegalAPIConfig configures the legal-database lookups
type LegalAPIConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	DocketURL    string `yaml:"docket_url" mapstructure:"docket_url"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LLMConfig configures the completion provider
type LLMConfig struct {
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	SkipLayer3 bool   `yaml:"skip_layer3" mapstructure:"skip_layer3"`
}

// BatchConfig bounds batch concurrency
type BatchConfig struct {
	GroupSize    int `yaml:"group_size" mapstructure:"group_size"`         // concurrent citations per group
	GroupDelayMS int `yaml:"group_delay_ms" mapstructure:"group_delay_ms"` // pause between groups
}

// RetryConfig configures transient-error retries
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Jitter      float64 `yaml:"jitter" mapstructure:"jitter"`
}

// CircuitConfig configures the per-service circuit breaker
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	WindowSeconds    int `yaml:"window_seconds" mapstructure:"window_seconds"`
	OpenSeconds      int `yaml:"open_seconds" mapstructure:"open_seconds"`
}

// CacheConfig configures the two cache tiers
type CacheConfig struct {
	Disabled      bool `yaml:"disabled" mapstructure:"disabled"`
	MemoryTTLMin  int  `yaml:"memory_ttl_min" mapstructure:"memory_ttl_min"`
	VerifiedDays  int  `yaml:"verified_days" mapstructure:"verified_days"`
	FlaggedDays   int  `yaml:"flagged_days" mapstructure:"flagged_days"`
	RejectedHours int  `yaml:"rejected_hours" mapstructure:"rejected_hours"`
}

// HoldingConfig configures the two-stage adversarial check
type HoldingConfig struct {
	GrayLow     float64 `yaml:"gray_low" mapstructure:"gray_low"`
	GrayHigh    float64 `yaml:"gray_high" mapstructure:"gray_high"`
	ForceStage2 bool    `yaml:"force_stage2" mapstructure:"force_stage2"`
}

// StoreConfig configures the durable verdict store
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty means ~/.citeguard/data
}

// AuditConfig configures the best-effort audit sink
type AuditConfig struct {
	Path      string `yaml:"path" mapstructure:"path"` // empty means ~/.citeguard/audit.jsonl
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// LoggingConfig toggles structured logging
type LoggingConfig struct {
	Quiet bool `yaml:"quiet" mapstructure:"quiet"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Legal: LegalAPIConfig{
			BaseURL:      "https://www.courtlistener.com/api/rest/v4",
			DocketURL:    "https://www.courtlistener.com/api/rest/v4/recap",
			Timeout:      15,
			UserAgent:    "Citeguard/0.3 (+https://github.com/citeguard/citeguard)",
			MaxBodyBytes: 5 << 20,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 1200,
		},
		Batch: BatchConfig{
			GroupSize:    3,
			GroupDelayMS: 500,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMS: 500,
			MaxDelayMS:  8000,
			Jitter:      0.2,
		},
		Circuit: CircuitConfig{
			FailureThreshold: 5,
			WindowSeconds:    60,
			OpenSeconds:      30,
		},
		Cache: CacheConfig{
			MemoryTTLMin:  15,
			VerifiedDays:  30,
			FlaggedDays:   7,
			RejectedHours: 1,
		},
		Holding: HoldingConfig{
			GrayLow:  0.70,
			GrayHigh: 0.90,
		},
		Audit: AuditConfig{
			QueueSize: 1024,
		},
	}
}
