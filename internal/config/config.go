package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/pkg/models"
)

// Config holds the application configuration
type Config struct {
	WebhookURL     string       `yaml:"webhook_url"`
	DeviceName     string       `yaml:"device_name,omitempty"`     // Defaults to the short host name
	CostPerKWh     float64      `yaml:"cost_per_kwh,omitempty"`    // Defaults to 30
	TimeoutSeconds int          `yaml:"timeout_seconds,omitempty"` // Webhook request timeout
	LedgerPath     string       `yaml:"ledger_path"`               // Local sqlite ledger, empty disables it
	LogFile        string       `yaml:"log_file,omitempty"`
	Source         SourceConfig `yaml:"source"`
	MQTT           MQTTConfig   `yaml:"mqtt,omitempty"`
	Server         ServerConfig `yaml:"server,omitempty"`
}

// SourceConfig describes how the journal utility is invoked
type SourceConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args,omitempty"`
	StartFlag      string   `yaml:"start_flag,omitempty"`
	EndFlag        string   `yaml:"end_flag,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// MQTTConfig holds the optional sync announcement settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// ServerConfig holds the webhook server settings
type ServerConfig struct {
	Listen         string  `yaml:"listen,omitempty"`
	Workbook       string  `yaml:"workbook,omitempty"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`
	RateLimitBurst int     `yaml:"rate_limit_burst,omitempty"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		CostPerKWh:     models.DefaultCostPerKWh,
		TimeoutSeconds: 30,
		LedgerPath:     "data.db",
		Source: SourceConfig{
			Command:        "powerjournal",
			Args:           []string{"export", "--format", "json"},
			StartFlag:      "--from",
			EndFlag:        "--to",
			TimeoutSeconds: 60,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "energylog",
		},
		Server: ServerConfig{
			Listen:         ":8080",
			Workbook:       "energy-log.xlsx",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
	}
}

// Load reads the config file. A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, err, "parsing config file %s", configPath)
	}

	return cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errs.Wrap(errs.KindConfiguration, err, "loading env file %s", path)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix("ENERGYLOG")
	v.AutomaticEnv()

	_ = v.BindEnv("webhook_url", "ENERGYLOG_WEBHOOK_URL", "WEBHOOK_URL")
	_ = v.BindEnv("device_name", "ENERGYLOG_DEVICE_NAME", "DEVICE_NAME")
	_ = v.BindEnv("cost_per_kwh", "ENERGYLOG_COST_PER_KWH", "COST_PER_KWH")
	_ = v.BindEnv("timeout_seconds", "ENERGYLOG_TIMEOUT_SECONDS")
	_ = v.BindEnv("ledger_path", "ENERGYLOG_LEDGER_PATH")
	_ = v.BindEnv("log_file", "ENERGYLOG_LOG_FILE", "LOG_FILE")
	_ = v.BindEnv("source_command", "ENERGYLOG_SOURCE_COMMAND")
	_ = v.BindEnv("workbook", "ENERGYLOG_WORKBOOK")
	_ = v.BindEnv("listen", "ENERGYLOG_LISTEN")

	if s := strings.TrimSpace(v.GetString("webhook_url")); s != "" {
		c.WebhookURL = s
	}
	if s := strings.TrimSpace(v.GetString("device_name")); s != "" {
		c.DeviceName = s
	}
	if v.IsSet("cost_per_kwh") {
		if rate := v.GetFloat64("cost_per_kwh"); rate > 0 {
			c.CostPerKWh = rate
		}
	}
	if v.IsSet("timeout_seconds") {
		if n := v.GetInt("timeout_seconds"); n > 0 {
			c.TimeoutSeconds = n
		}
	}
	if v.IsSet("ledger_path") {
		c.LedgerPath = strings.TrimSpace(v.GetString("ledger_path"))
	}
	if s := strings.TrimSpace(v.GetString("log_file")); s != "" {
		c.LogFile = s
	}
	if s := strings.TrimSpace(v.GetString("source_command")); s != "" {
		c.Source.Command = s
	}
	if s := strings.TrimSpace(v.GetString("workbook")); s != "" {
		c.Server.Workbook = s
	}
	if s := strings.TrimSpace(v.GetString("listen")); s != "" {
		c.Server.Listen = s
	}
}

// Finalize fills derived defaults after file and environment are applied
func (c *Config) Finalize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.DeviceName = strings.TrimSpace(c.DeviceName)
	if c.DeviceName == "" {
		c.DeviceName = ShortHostname()
	}
	if c.CostPerKWh <= 0 {
		c.CostPerKWh = models.DefaultCostPerKWh
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.Source.StartFlag == "" {
		c.Source.StartFlag = "--from"
	}
	if c.Source.EndFlag == "" {
		c.Source.EndFlag = "--to"
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = 60
	}
}

// Resolve loads the env file, the config file and the environment overlay,
// in that order, and returns the finished configuration
func Resolve(configPath, envFile string) (*Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Finalize()
	return cfg, nil
}

// RequireWebhook fails when no webhook URL is configured
func (c *Config) RequireWebhook() error {
	if c.WebhookURL == "" {
		return errs.New(errs.KindConfiguration, "webhook_url is not configured (set it in the config file or ENERGYLOG_WEBHOOK_URL)")
	}
	return nil
}

// Timeout returns the webhook request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SourceTimeout returns the journal utility timeout
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// DefaultEnvFilePath returns the default dotenv file path (local directory)
func DefaultEnvFilePath() string {
	return "energylog.env"
}

// ShortHostname returns the host name up to the first dot
func ShortHostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-device"
	}
	short, _, _ := strings.Cut(host, ".")
	return short
}
