package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"
)

const DefaultContradictionPrompt = `You are checking a persona's memory for contradictions.

Fact A: %s
Fact B: %s

Do fact A and fact B make conflicting claims about the same subject?
Answer with exactly one word: YES or NO.`

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// StoreConfig selects the fact repository backend.
type StoreConfig struct {
	Driver      string `toml:"driver"` // postgres, sqlite or memgraph
	DatabaseURL string `toml:"database_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// DetectionConfig tunes the per-fact contradiction check.
type DetectionConfig struct {
	CandidateLimit        int `toml:"candidate_limit"`
	ConfidenceGap         int `toml:"confidence_gap"`
	SemanticMinConfidence int `toml:"semantic_min_confidence"`
	JudgeBudget           int `toml:"judge_budget"`
	JudgeDelayMS          int `toml:"judge_delay_ms"`
	VerdictCacheSeconds   int `toml:"verdict_cache_seconds"`
}

func (d DetectionConfig) JudgeDelay() time.Duration {
	return time.Duration(d.JudgeDelayMS) * time.Millisecond
}

func (d DetectionConfig) VerdictCacheTTL() time.Duration {
	return time.Duration(d.VerdictCacheSeconds) * time.Second
}

type ScanConfig struct {
	TimeoutMinutes int `toml:"timeout_minutes"`
}

func (s ScanConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMinutes) * time.Minute
}

// ExportConfig configures the webhook push of active facts.
type ExportConfig struct {
	WebhookURL             string `toml:"webhook_url"`
	WebhookIntervalSeconds int    `toml:"webhook_interval_seconds"`
	WebhookBackoffSeconds  int    `toml:"webhook_backoff_seconds"`
}

func (e ExportConfig) WebhookInterval() time.Duration {
	return time.Duration(e.WebhookIntervalSeconds) * time.Second
}

func (e ExportConfig) WebhookBackoff() time.Duration {
	return time.Duration(e.WebhookBackoffSeconds) * time.Second
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type PromptsConfig struct {
	Contradiction string `toml:"contradiction"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Store     StoreConfig     `toml:"store"`
	Memgraph  MemgraphConfig  `toml:"memgraph"`
	Detection DetectionConfig `toml:"detection"`
	Scan      ScanConfig      `toml:"scan"`
	Export    ExportConfig    `toml:"export"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Prompts   PromptsConfig   `toml:"prompts"`
}

// Default returns the configuration used for keys a file leaves unset.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "claude",
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 16,
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: "lorekeeper.db",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Detection: DetectionConfig{
			CandidateLimit:        1000,
			ConfidenceGap:         30,
			SemanticMinConfidence: 70,
			JudgeBudget:           10,
			JudgeDelayMS:          100,
		},
		Scan:    ScanConfig{TimeoutMinutes: 10},
		Export: ExportConfig{
			WebhookIntervalSeconds: 5,
			WebhookBackoffSeconds:  120,
		},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info", Format: "json"},
		Prompts: PromptsConfig{Contradiction: DefaultContradictionPrompt},
	}
}

// Load reads a TOML file over the defaults. Environment overrides are not
// applied here; see ApplyEnv.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read file '%s'", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrap(err, "config: parse TOML")
	}
	return cfg, nil
}

// ApplyEnv overrides file values with any of the supported environment
// variables that are set.
func (c *Config) ApplyEnv() error {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Export.WebhookURL, "EXPORT_WEBHOOK_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return eris.Wrapf(err, "config: invalid PORT %q", port)
		}
		c.Server.Port = p
	}

	// provider specific keys, only when no generic key was given
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "claude":
			setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
		case "gemini":
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		case "openai":
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
	return nil
}

// Validate rejects configurations the detector cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite", "memgraph":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "claude", "gemini", "openai", "ollama":
	default:
		return eris.Errorf("config: unsupported llm provider %q", c.LLM.Provider)
	}
	d := c.Detection
	if d.JudgeBudget < 1 || d.JudgeBudget > 10 {
		return eris.Errorf("config: judge_budget must be between 1 and 10, got %d", d.JudgeBudget)
	}
	if d.JudgeDelayMS <= 0 || d.JudgeDelayMS > 5000 {
		return eris.Errorf("config: judge_delay_ms must be between 1 and 5000, got %d", d.JudgeDelayMS)
	}
	if d.CandidateLimit < 1 {
		return eris.Errorf("config: candidate_limit must be positive, got %d", d.CandidateLimit)
	}
	if d.ConfidenceGap < 0 || d.SemanticMinConfidence < 0 || d.SemanticMinConfidence > 100 {
		return eris.New("config: confidence thresholds must be within 0..100")
	}
	if c.Scan.TimeoutMinutes < 1 {
		return eris.Errorf("config: scan timeout_minutes must be positive, got %d", c.Scan.TimeoutMinutes)
	}
	if c.Export.WebhookIntervalSeconds < 0 || c.Export.WebhookBackoffSeconds < 0 {
		return eris.New("config: webhook interval and backoff must not be negative")
	}
	if strings.Count(c.Prompts.Contradiction, "%s") != 2 {
		return eris.New("config: contradiction prompt needs exactly two %s placeholders")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
