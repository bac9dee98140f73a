package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Relay           Relay         `mapstructure:"relay" yaml:"relay"`
	Admin           Admin         `mapstructure:"admin" yaml:"admin"`
}

// Relay configures the TCP relay listener and per-connection limits.
type Relay struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	Port         int           `mapstructure:"port" yaml:"port"`
	SharedKey    string        `mapstructure:"shared_key" yaml:"shared_key"`
	OperatorName string        `mapstructure:"operator_name" yaml:"operator_name"`
	AuthTimeout  time.Duration `mapstructure:"auth_timeout" yaml:"auth_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// MaxFrameBytes caps a single inbound frame. The paired client limits
	// attachments to 5 MB before base64, which is ~6.7 MB on the wire.
	MaxFrameBytes int     `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	OutboxSize    int     `mapstructure:"outbox_size" yaml:"outbox_size"`
	MessageRate   float64 `mapstructure:"message_rate" yaml:"message_rate"`
	MessageBurst  int     `mapstructure:"message_burst" yaml:"message_burst"`
	JournalSize   int     `mapstructure:"journal_size" yaml:"journal_size"`
}

// Admin configures the operator HTTP API.
type Admin struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	Username          string        `mapstructure:"username" yaml:"username"`
	PasswordHash      string        `mapstructure:"password_hash" yaml:"password_hash"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL          time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	LoginRate         float64       `mapstructure:"login_rate" yaml:"login_rate"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 5 * time.Second,
		Relay: Relay{
			Address:       "0.0.0.0",
			Port:          9000,
			OperatorName:  "Server",
			AuthTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			MaxFrameBytes: 8 << 20,
			OutboxSize:    256,
			JournalSize:   500,
		},
		Admin: Admin{
			Enabled:           false,
			Addr:              "127.0.0.1:8080",
			ReadHeaderTimeout: 5 * time.Second,
			Username:          "admin",
			JWTIssuer:         "tcprelay",
			JWTAudience:       "tcprelay-admin",
			TokenTTL:          12 * time.Hour,
			LoginRate:         1,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Relay.Address != "" {
		c.Relay.Address = other.Relay.Address
	}
	if other.Relay.Port != 0 {
		c.Relay.Port = other.Relay.Port
	}
	if other.Relay.SharedKey != "" {
		c.Relay.SharedKey = other.Relay.SharedKey
	}
	if other.Relay.OperatorName != "" {
		c.Relay.OperatorName = other.Relay.OperatorName
	}
	if other.Admin.Addr != "" {
		c.Admin.Addr = other.Admin.Addr
	}
	if other.Admin.Enabled {
		c.Admin.Enabled = true
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Relay.Port < 0 || c.Relay.Port > 65535 {
		return fmt.Errorf("relay.port %d is out of range", c.Relay.Port)
	}
	if c.Relay.OperatorName == "" {
		return errors.New("relay.operator_name is required")
	}
	if c.Relay.MaxFrameBytes <= 0 {
		return errors.New("relay.max_frame_bytes must be positive")
	}
	if c.Relay.OutboxSize <= 0 {
		return errors.New("relay.outbox_size must be positive")
	}
	if c.Relay.MessageRate < 0 || c.Relay.MessageBurst < 0 {
		return errors.New("relay.message_rate and relay.message_burst must not be negative")
	}
	if c.Admin.Enabled && c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when the admin api is enabled")
	}
	return nil
}
