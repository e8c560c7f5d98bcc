package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAnchorTimezone  = "Australia/Sydney"
	defaultDisplayTimezone = "Australia/Perth"

	configPathEnv         = "GREYHOUND_CONFIG"
	geminiAPIKeyEnv       = "GEMINI_API_KEY"
	geminiModelEnv        = "GEMINI_MODEL"
	webhookURLEnv         = "WEBHOOK_URL"
	fallbackWebhookURLEnv = "FALLBACK_WEBHOOK_URL"
	runModeEnv            = "RUN_MODE"
	overrideDateEnv       = "OVERRIDE_DATE"
	dataDirEnv            = "DATA_DIR"
	databaseDSNEnv        = "DATABASE_DSN"
	logLevelEnv           = "LOG_LEVEL"
)

// Run modes selected via RUN_MODE.
const (
	ModeSchedule = "schedule"
	ModeResearch = "research"
	ModeOnce     = "once"
)

// Config holds high-level settings required across the application.
type Config struct {
	Gemini       GeminiConfig    `yaml:"gemini"`
	Webhook      WebhookConfig   `yaml:"webhook"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	Storage      StorageConfig   `yaml:"storage"`
	Learner      LearnerConfig   `yaml:"learner"`
	Logging      LoggingConfig   `yaml:"logging"`
	RunMode      string          `yaml:"runMode"`
	OverrideDate string          `yaml:"overrideDate"`
}

// GeminiConfig describes the completion service and the retry envelope
// around it.
type GeminiConfig struct {
	APIKey            string `yaml:"apiKey"`
	Model             string `yaml:"model"`
	TimeoutSeconds    int    `yaml:"timeoutSeconds"`
	MaxAttempts       int    `yaml:"maxAttempts"`
	RetryDelaySeconds int    `yaml:"retryDelaySeconds"`
	MinResponseLength int    `yaml:"minResponseLength"`
}

// Timeout returns the hard ceiling for a single completion call.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed pause between failed attempts.
func (g GeminiConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelaySeconds) * time.Second
}

// WebhookConfig wires the Discord delivery endpoints.
type WebhookConfig struct {
	URL         string `yaml:"url"`
	FallbackURL string `yaml:"fallbackUrl"`
}

// TriggerTime is a wall-clock trigger in the anchor timezone.
type TriggerTime struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// SchedulerConfig defines when and in which timezones the bot runs.
// The trigger times are pointers so an explicit midnight trigger can be
// told apart from an absent one.
type SchedulerConfig struct {
	AnchorTimezone  string       `yaml:"anchorTimezone"`
	DisplayTimezone string       `yaml:"displayTimezone"`
	Tips            *TriggerTime `yaml:"tips"`
	Results         *TriggerTime `yaml:"results"`
	WindowMinutes   int          `yaml:"windowMinutes"`

	anchor  *time.Location `yaml:"-"`
	display *time.Location `yaml:"-"`
}

// Anchor resolves the timezone that decides "what day is today".
func (s SchedulerConfig) Anchor() *time.Location {
	if s.anchor != nil {
		return s.anchor
	}
	loc, _ := time.LoadLocation(defaultAnchorTimezone)
	return loc
}

// Display resolves the timezone used for user-facing clock times.
func (s SchedulerConfig) Display() *time.Location {
	if s.display != nil {
		return s.display
	}
	loc, _ := time.LoadLocation(defaultDisplayTimezone)
	return loc
}

// StorageConfig describes the data directory and the optional archive DSN.
type StorageConfig struct {
	DataDir     string `yaml:"dataDir"`
	DatabaseDSN string `yaml:"databaseDsn"`
}

// LearnerConfig gates the results-analysis subsystem.
type LearnerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezones()

	return cfg
}

// Validate reports a fatal configuration error for missing credentials.
func (c Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Webhook.URL == "" {
		return fmt.Errorf("WEBHOOK_URL is required")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Webhook.URL = v
	}

	if v := os.Getenv(fallbackWebhookURLEnv); v != "" {
		c.Webhook.FallbackURL = v
	}

	if v := os.Getenv(runModeEnv); v != "" {
		c.RunMode = v
	}

	if v := os.Getenv(overrideDateEnv); v != "" {
		c.OverrideDate = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DatabaseDSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.anchor = loadLocation(c.Scheduler.AnchorTimezone, defaultAnchorTimezone)
	c.Scheduler.display = loadLocation(c.Scheduler.DisplayTimezone, defaultDisplayTimezone)
}

func loadLocation(tz, fallback string) *time.Location {
	if tz == "" {
		tz = fallback
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, fallback)
		loc, _ = time.LoadLocation(fallback)
	}
	return loc
}

func mergeConfig(base, override Config) Config {
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.TimeoutSeconds > 0 {
		base.Gemini.TimeoutSeconds = override.Gemini.TimeoutSeconds
	}
	if override.Gemini.MaxAttempts > 0 {
		base.Gemini.MaxAttempts = override.Gemini.MaxAttempts
	}
	if override.Gemini.RetryDelaySeconds > 0 {
		base.Gemini.RetryDelaySeconds = override.Gemini.RetryDelaySeconds
	}
	if override.Gemini.MinResponseLength > 0 {
		base.Gemini.MinResponseLength = override.Gemini.MinResponseLength
	}

	if override.Webhook.URL != "" {
		base.Webhook.URL = override.Webhook.URL
	}
	if override.Webhook.FallbackURL != "" {
		base.Webhook.FallbackURL = override.Webhook.FallbackURL
	}

	if override.Scheduler.AnchorTimezone != "" {
		base.Scheduler.AnchorTimezone = override.Scheduler.AnchorTimezone
	}
	if override.Scheduler.DisplayTimezone != "" {
		base.Scheduler.DisplayTimezone = override.Scheduler.DisplayTimezone
	}
	if override.Scheduler.Tips != nil {
		base.Scheduler.Tips = override.Scheduler.Tips
	}
	if override.Scheduler.Results != nil {
		base.Scheduler.Results = override.Scheduler.Results
	}
	if override.Scheduler.WindowMinutes > 0 {
		base.Scheduler.WindowMinutes = override.Scheduler.WindowMinutes
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}
	if override.Storage.DatabaseDSN != "" {
		base.Storage.DatabaseDSN = override.Storage.DatabaseDSN
	}

	if override.Learner.Enabled {
		base.Learner.Enabled = true
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.RunMode != "" {
		base.RunMode = override.RunMode
	}
	if override.OverrideDate != "" {
		base.OverrideDate = override.OverrideDate
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-pro",
			TimeoutSeconds:    600,
			MaxAttempts:       3,
			RetryDelaySeconds: 120,
			MinResponseLength: 100,
		},
		Scheduler: SchedulerConfig{
			AnchorTimezone:  defaultAnchorTimezone,
			DisplayTimezone: defaultDisplayTimezone,
			Tips:            &TriggerTime{Hour: 12, Minute: 0},
			Results:         &TriggerTime{Hour: 19, Minute: 0},
			WindowMinutes:   2,
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Logging: LoggingConfig{Level: "info"},
		RunMode: ModeSchedule,
	}
}

// defaultDataDir prefers the container volume path when it exists.
func defaultDataDir() string {
	if _, err := os.Stat("/app"); err == nil {
		return "/app/data"
	}
	return "./data"
}
