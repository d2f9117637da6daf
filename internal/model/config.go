package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MailConfig holds the IMAP settings for the unread-mail source.
type MailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// Mailbox is the mailbox to check for unread messages.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// MarkAsRead flags fetched messages as seen after extraction.
	MarkAsRead bool `mapstructure:"mark_as_read" yaml:"mark_as_read"`

	// PrimaryOnly restricts the search to the provider's primary category
	// when the server supports categorized search; otherwise it is ignored.
	PrimaryOnly bool `mapstructure:"primary_only" yaml:"primary_only"`
}

// NewsConfig holds the headlines API settings.
type NewsConfig struct {
	APIKey   string   `mapstructure:"api_key" yaml:"api_key"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
	Category string   `mapstructure:"category" yaml:"category"`
	Limit    int      `mapstructure:"limit" yaml:"limit"`
}

// WeatherConfig holds the forecast API settings.
type WeatherConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Location string `mapstructure:"location" yaml:"location"`
}

// SMTPConfig holds the outbound mail transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
}

// DigestConfig holds scheduling and storage settings for the digest itself.
type DigestConfig struct {
	// IntervalSec is how often (in seconds) the scheduler runs the pipeline.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// DBPath is the location of the run-history database.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level application configuration. Components receive
// the sections they need by value; nothing reads the environment directly.
type AppConfig struct {
	Mail    MailConfig    `mapstructure:"mail" yaml:"mail"`
	News    NewsConfig    `mapstructure:"news" yaml:"news"`
	Weather WeatherConfig `mapstructure:"weather" yaml:"weather"`
	SMTP    SMTPConfig    `mapstructure:"smtp" yaml:"smtp"`
	Digest  DigestConfig  `mapstructure:"digest" yaml:"digest"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/dailydigest/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "dailydigest", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration. Credentials are
// left empty; each component checks for them at the point of use.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Mail: MailConfig{
			Port:    "993",
			Mailbox: "INBOX",
		},
		News: NewsConfig{
			Limit: 5,
		},
		SMTP: SMTPConfig{
			Port: "587",
		},
		Digest: DigestConfig{
			IntervalSec: 24 * 60 * 60,
			DBPath:      filepath.Join(".", "dailydigest.db"),
		},
	}
}

// configKeys lists every leaf setting. Each one is bound to its DIGEST_
// environment variable explicitly: AutomaticEnv alone only resolves keys
// Viper already knows from the file or a default, which would leave
// env-only secrets unreadable.
var configKeys = []string{
	"mail.host", "mail.port", "mail.username", "mail.password",
	"mail.mailbox", "mail.mark_as_read", "mail.primary_only",
	"news.api_key", "news.keywords", "news.category", "news.limit",
	"weather.api_key", "weather.location",
	"smtp.host", "smtp.port", "smtp.username", "smtp.password",
	"smtp.from", "smtp.to",
	"digest.interval_sec", "digest.db_path",
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// with DIGEST_-prefixed environment variables overriding file values
// (e.g. DIGEST_SMTP_PASSWORD overrides smtp.password). A missing file is not
// an error; defaults and environment values still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		v.MustBindEnv(key)
	}

	v.SetDefault("mail.port", "993")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("news.limit", 5)
	v.SetDefault("smtp.port", "587")
	v.SetDefault("digest.interval_sec", 24*60*60)
	v.SetDefault("digest.db_path", filepath.Join(".", "dailydigest.db"))

	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(*os.PathError)
		if !missing {
			_, missing = err.(viper.ConfigFileNotFoundError)
		}
		if !missing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		// Missing file: fall through so env and defaults still resolve.
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mail", cfg.Mail)
	v.Set("news", cfg.News)
	v.Set("weather", cfg.Weather)
	v.Set("smtp", cfg.SMTP)
	v.Set("digest", cfg.Digest)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
