package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/stellarlinkco/rosterbot/internal/roster"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRequiredStatus    = "faol"
	DefaultPageSize          = 7
	DefaultSearchRateLimit   = 1.0
	DefaultSearchBurst       = 5
	DefaultSessionTTL        = "24h"
	DefaultSessionMaxEntries = 10000
	DefaultSessionSweep      = "0 */10 * * * *"
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 10000
	DefaultBufSize           = 100
	DefaultCredentialsFile   = "credentials.json"
	DefaultLogLevel          = "info"
)

const (
	SourceSheets = "sheets"
	SourceCSV    = "csv"
	SourceXLSX   = "xlsx"

	ModePolling = "polling"
	ModeWebhook = "webhook"
)

var ErrNoToken = errors.New("telegram token is required")

type Config struct {
	Telegram TelegramConfig  `json:"telegram" yaml:"telegram"`
	Source   SourceConfig    `json:"source" yaml:"source"`
	Fields   roster.FieldMap `json:"fields" yaml:"fields"`
	Search   SearchConfig    `json:"search" yaml:"search"`
	Session  SessionConfig   `json:"session" yaml:"session"`
	Gateway  GatewayConfig   `json:"gateway" yaml:"gateway"`
	Log      LogConfig       `json:"log" yaml:"log"`
}

type TelegramConfig struct {
	Token         string   `json:"token" yaml:"token"`
	AllowFrom     []string `json:"allowFrom" yaml:"allowFrom"`
	Proxy         string   `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Mode          string   `json:"mode" yaml:"mode"` // "polling" (default) or "webhook"
	WebhookURL    string   `json:"webhookUrl,omitempty" yaml:"webhookUrl,omitempty"`
	WebhookSecret string   `json:"webhookSecret,omitempty" yaml:"webhookSecret,omitempty"`
}

type SourceConfig struct {
	Type            string `json:"type" yaml:"type"` // "sheets" (default), "csv" or "xlsx"
	SheetID         string `json:"sheetId,omitempty" yaml:"sheetId,omitempty"`
	Worksheet       string `json:"worksheet,omitempty" yaml:"worksheet,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty" yaml:"credentialsFile,omitempty"`
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
}

type SearchConfig struct {
	RequiredStatus string  `json:"requiredStatus" yaml:"requiredStatus"`
	PageSize       int     `json:"pageSize" yaml:"pageSize"`
	RateLimit      float64 `json:"rateLimit" yaml:"rateLimit"` // searches per second per chat, 0 disables
	Burst          int     `json:"burst" yaml:"burst"`
}

type SessionConfig struct {
	TTL        string `json:"ttl" yaml:"ttl"`
	MaxEntries int    `json:"maxEntries" yaml:"maxEntries"`
	Sweep      string `json:"sweep" yaml:"sweep"` // cron expression with seconds
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Mode: ModePolling,
		},
		Source: SourceConfig{
			Type:            SourceSheets,
			CredentialsFile: DefaultCredentialsFile,
		},
		Fields: roster.DefaultFieldMap(),
		Search: SearchConfig{
			RequiredStatus: DefaultRequiredStatus,
			PageSize:       DefaultPageSize,
			RateLimit:      DefaultSearchRateLimit,
			Burst:          DefaultSearchBurst,
		},
		Session: SessionConfig{
			TTL:        DefaultSessionTTL,
			MaxEntries: DefaultSessionMaxEntries,
			Sweep:      DefaultSessionSweep,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".rosterbot")
}

// ConfigPath is $ROSTERBOT_CONFIG or ~/.rosterbot/config.json.
func ConfigPath() string {
	if p := os.Getenv("ROSTERBOT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads path (JSON, or YAML for .yaml/.yml), applies
// environment overrides and fills defaults. A missing file is not an error.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	fillDefaults(cfg)
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("ROSTERBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if token := os.Getenv("BOT_TOKEN"); token != "" && cfg.Telegram.Token == "" {
		cfg.Telegram.Token = token
	}
	if url := os.Getenv("ROSTERBOT_WEBHOOK_URL"); url != "" {
		cfg.Telegram.WebhookURL = url
		cfg.Telegram.Mode = ModeWebhook
	}
	if t := os.Getenv("ROSTERBOT_SOURCE_TYPE"); t != "" {
		cfg.Source.Type = t
	}
	if id := os.Getenv("ROSTERBOT_SHEET_ID"); id != "" {
		cfg.Source.SheetID = id
	}
	if ws := os.Getenv("ROSTERBOT_WORKSHEET"); ws != "" {
		cfg.Source.Worksheet = ws
	}
	if creds := os.Getenv("ROSTERBOT_CREDENTIALS"); creds != "" {
		cfg.Source.CredentialsFile = creds
	}
	if p := os.Getenv("ROSTERBOT_SOURCE_PATH"); p != "" {
		cfg.Source.Path = p
	}
	if status := os.Getenv("ROSTERBOT_REQUIRED_STATUS"); status != "" {
		cfg.Search.RequiredStatus = status
	}
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}
	if level := os.Getenv("ROSTERBOT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func fillDefaults(cfg *Config) {
	if cfg.Telegram.Mode == "" {
		cfg.Telegram.Mode = ModePolling
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = SourceSheets
	}
	if cfg.Source.CredentialsFile == "" {
		cfg.Source.CredentialsFile = DefaultCredentialsFile
	}
	if cfg.Search.PageSize <= 0 {
		cfg.Search.PageSize = DefaultPageSize
	}
	if cfg.Search.RateLimit > 0 && cfg.Search.Burst <= 0 {
		cfg.Search.Burst = DefaultSearchBurst
	}
	if cfg.Session.TTL == "" {
		cfg.Session.TTL = DefaultSessionTTL
	}
	if cfg.Session.MaxEntries <= 0 {
		cfg.Session.MaxEntries = DefaultSessionMaxEntries
	}
	if cfg.Session.Sweep == "" {
		cfg.Session.Sweep = DefaultSessionSweep
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = DefaultHost
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// SessionTTL parses Session.TTL, falling back to the default on error.
func (c *Config) SessionTTL() time.Duration {
	if d, err := time.ParseDuration(c.Session.TTL); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultSessionTTL)
	return d
}

// Validate checks what the bot needs to serve chats.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrNoToken
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("webhook mode requires telegram.webhookUrl")
		}
	default:
		return fmt.Errorf("unknown telegram mode %q", c.Telegram.Mode)
	}
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("session ttl: %w", err)
	}
	return nil
}

// ValidateSource checks only the data source and field layout, which is all
// the offline commands need.
func (c *Config) ValidateSource() error {
	switch c.Source.Type {
	case SourceSheets:
		if c.Source.SheetID == "" {
			return fmt.Errorf("source.sheetId is required for the sheets source")
		}
	case SourceCSV, SourceXLSX:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the %s source", c.Source.Type)
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}
	if err := c.Fields.Validate(); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	return nil
}

func SaveConfig(cfg *Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
