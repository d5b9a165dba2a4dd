// Package config loads the bot configuration from YAML, with environment
// overrides for secrets that should not live in the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xetas/tradebot/pkg/model"
)

var (
	ErrNoAccountName = errors.New("config: account_name is not set, please set it")
	ErrNoPassword    = errors.New("config: password is not set, please set it")
	ErrNoBots        = errors.New("config: no bot entries configured")
)

// Bot holds everything one bot account needs. Immutable after load; the
// accept-friend-requests flag seeds a runtime toggle owned by the agent.
type Bot struct {
	AccountName string `yaml:"account_name"`
	Password    string `yaml:"password,omitempty"` // or TRADEBOT_PASSWORD
	DisplayName string `yaml:"display_name,omitempty"`

	AcceptFriendRequests bool `yaml:"accept_friend_requests"`
	AcceptDonations      bool `yaml:"accept_donations"`
	AcceptEscrow         bool `yaml:"accept_escrow"`
	Accept1on1Trades     bool `yaml:"accept_1on1_trades"`
	Accept1on2Trades     bool `yaml:"accept_1on2_trades"`

	GroupToInvite model.GroupID     `yaml:"group_to_invite,omitempty"`
	Admins        []model.AccountID `yaml:"admins,omitempty"`
}

// IsAdmin reports whether the given account is a configured administrator.
func (b *Bot) IsAdmin(id model.AccountID) bool {
	for _, a := range b.Admins {
		if a == id {
			return true
		}
	}
	return false
}

// Validate checks the fields without which the bot cannot even attempt a
// logon.
func (b *Bot) Validate() error {
	if b.AccountName == "" {
		return ErrNoAccountName
	}
	if b.Password == "" {
		return ErrNoPassword
	}
	return nil
}

// Config is the top-level YAML configuration.
type Config struct {
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`

	DataDir     string `yaml:"data_dir,omitempty"`     // sentry + secret files
	JournalPath string `yaml:"journal_path,omitempty"` // SQLite activity journal
	WebBaseURL  string `yaml:"web_base_url,omitempty"` // platform web surface
	MetricsAddr string `yaml:"metrics_addr,omitempty"` // empty disables the endpoint

	Bots []Bot `yaml:"bots"`
}

// Default returns the configuration defaults applied before the file is read.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		DataDir:     "./data",
		JournalPath: "./data/journal.db",
	}
}

// Load reads the YAML file at path and applies environment overrides.
// TRADEBOT_PASSWORD overrides the password of every bot entry that has none
// in the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if pw := os.Getenv("TRADEBOT_PASSWORD"); pw != "" {
		for i := range cfg.Bots {
			if cfg.Bots[i].Password == "" {
				cfg.Bots[i].Password = pw
			}
		}
	}

	if len(cfg.Bots) == 0 {
		return nil, ErrNoBots
	}
	return cfg, nil
}

// Bot selects a bot entry by account name. An empty name selects the sole
// entry when there is exactly one.
func (c *Config) Bot(accountName string) (*Bot, error) {
	if accountName == "" {
		if len(c.Bots) == 1 {
			return &c.Bots[0], nil
		}
		return nil, fmt.Errorf("config: %d bot entries configured, select one with -account", len(c.Bots))
	}
	for i := range c.Bots {
		if c.Bots[i].AccountName == accountName {
			return &c.Bots[i], nil
		}
	}
	return nil, fmt.Errorf("config: no bot entry for account %q", accountName)
}
