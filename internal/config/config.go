// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Simulator SimulatorConfig `mapstructure:"simulator" yaml:"simulator"`
	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	Memory    MemoryConfig    `mapstructure:"memory" yaml:"memory"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider identifies a supported reasoning model provider.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderMock   LLMProvider = "mock"
)

// LLMConfig defines the connection to the reasoning model.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerSecond caps the outbound call rate to the provider.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// AgentConfig tunes the orchestration loop.
type AgentConfig struct {
	MaxIterations int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	StepLimit     int    `mapstructure:"step_limit" yaml:"step_limit"`
	TopKPolicies  int    `mapstructure:"top_k_policies" yaml:"top_k_policies"`
	DefaultUserID string `mapstructure:"default_user_id" yaml:"default_user_id"`
}

// SimulatorConfig tunes the order lifecycle simulator.
type SimulatorConfig struct {
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path"`
	// TimeMultiplier is simulated seconds per real second. The default 3600
	// makes one real second pass as one simulated hour.
	TimeMultiplier float64       `mapstructure:"time_multiplier" yaml:"time_multiplier"`
	TickInterval   time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	StuckRate      float64       `mapstructure:"stuck_rate" yaml:"stuck_rate"`
	CancelRate     float64       `mapstructure:"cancel_rate" yaml:"cancel_rate"`
}

// ToolsConfig tunes the simulated unreliability of the tool gateway. The
// randomness is load-bearing: it exercises the agent's reflection paths.
type ToolsConfig struct {
	FailureRate     float64       `mapstructure:"failure_rate" yaml:"failure_rate"`
	PartialRate     float64       `mapstructure:"partial_rate" yaml:"partial_rate"`
	SimulateLatency bool          `mapstructure:"simulate_latency" yaml:"simulate_latency"`
	MaxLatency      time.Duration `mapstructure:"max_latency" yaml:"max_latency"`
}

// RetrievalConfig tunes policy document chunking and retrieval.
type RetrievalConfig struct {
	PolicyDir    string `mapstructure:"policy_dir" yaml:"policy_dir"`
	ChunkSize    int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
}

// MemoryBackend identifies a conversation checkpoint store implementation.
type MemoryBackend string

const (
	MemoryBackendInProcess MemoryBackend = "memory"
	MemoryBackendSQLite    MemoryBackend = "sqlite"
)

// MemoryConfig selects where per-thread conversation state is checkpointed.
type MemoryConfig struct {
	Backend MemoryBackend `mapstructure:"backend" yaml:"backend"`
	Path    string        `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "attendant")
	v.SetDefault("logger.log_file", "attendant.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.requests_per_second", 2.0)

	// -- Agent --
	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.step_limit", 15)
	v.SetDefault("agent.top_k_policies", 3)
	v.SetDefault("agent.default_user_id", "user_12345")

	// -- Simulator --
	v.SetDefault("simulator.csv_path", "orders_db.csv")
	v.SetDefault("simulator.time_multiplier", 3600.0)
	v.SetDefault("simulator.tick_interval", "5s")
	v.SetDefault("simulator.stuck_rate", 0.12)
	v.SetDefault("simulator.cancel_rate", 0.08)

	// -- Tools --
	v.SetDefault("tools.failure_rate", 0.2)
	v.SetDefault("tools.partial_rate", 0.3)
	v.SetDefault("tools.simulate_latency", true)
	v.SetDefault("tools.max_latency", "500ms")

	// -- Retrieval --
	v.SetDefault("retrieval.policy_dir", "policies")
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.chunk_overlap", 50)

	// -- Memory --
	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.path", "attendant_memory.db")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with static defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	_ = v.BindEnv("llm.api_key", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be a positive integer")
	}
	if c.Agent.StepLimit < c.Agent.MaxIterations {
		return fmt.Errorf("agent.step_limit must be at least agent.max_iterations")
	}
	if c.Simulator.TimeMultiplier <= 0 {
		return fmt.Errorf("simulator.time_multiplier must be positive")
	}
	if c.Simulator.TickInterval <= 0 {
		return fmt.Errorf("simulator.tick_interval must be a positive duration")
	}
	if err := validateRate("simulator.stuck_rate", c.Simulator.StuckRate); err != nil {
		return err
	}
	if err := validateRate("simulator.cancel_rate", c.Simulator.CancelRate); err != nil {
		return err
	}
	if err := validateRate("tools.failure_rate", c.Tools.FailureRate); err != nil {
		return err
	}
	if err := validateRate("tools.partial_rate", c.Tools.PartialRate); err != nil {
		return err
	}
	if c.Retrieval.ChunkSize <= c.Retrieval.ChunkOverlap {
		return fmt.Errorf("retrieval.chunk_size must exceed retrieval.chunk_overlap")
	}
	switch c.Memory.Backend {
	case MemoryBackendInProcess, MemoryBackendSQLite:
	default:
		return fmt.Errorf("memory.backend must be one of [memory, sqlite], got %q", c.Memory.Backend)
	}
	return nil
}

func validateRate(name string, rate float64) error {
	if rate < 0.0 || rate > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0", name)
	}
	return nil
}
