package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// DatabasePath points at the SQLite user directory. Empty disables it and
	// usernames are shown as raw user ids.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	// DirectoryCacheTTL keeps resolved usernames in memory. Zero disables it.
	DirectoryCacheTTL time.Duration `mapstructure:"directory_cache_ttl" yaml:"directory_cache_ttl"`

	// JWTSecret enables token authentication on the WebSocket handshake.
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	SenderPolicy        string `mapstructure:"sender_policy" yaml:"sender_policy"`
	EchoPrivateToSender bool   `mapstructure:"echo_private_to_sender" yaml:"echo_private_to_sender"`
	MaxMessageLength    int    `mapstructure:"max_message_length" yaml:"max_message_length"`
	OutboundBuffer      int    `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`

	JoinRateLimit    int           `mapstructure:"join_rate_limit" yaml:"join_rate_limit"`
	MessageRateLimit int           `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DirectoryCacheTTL: time.Minute,
		JWTIssuer:         "wirechat",
		JWTAudience:       "wirechat-clients",
		JWTTTL:            24 * time.Hour,
		SenderPolicy:      string(core.SenderPolicyBound),
		MaxMessageLength:  core.DefaultMaxMessageLength,
		OutboundBuffer:    core.DefaultOutboundBuffer,
		JoinRateLimit:     5,
		MessageRateLimit:  20,
		RateLimitWindow:   time.Minute,
	}
}

// Validate reports configuration values the server cannot run with.
// A zero rate limit disables limiting.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if !core.SenderPolicy(c.SenderPolicy).Valid() {
		errs = append(errs, fmt.Errorf("unknown sender_policy %q", c.SenderPolicy))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("max_message_length must be positive"))
	}
	if c.DirectoryCacheTTL < 0 {
		errs = append(errs, errors.New("directory_cache_ttl must not be negative"))
	}
	if c.OutboundBuffer <= 0 {
		errs = append(errs, errors.New("outbound_buffer must be positive"))
	}
	if c.JoinRateLimit < 0 || c.MessageRateLimit < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if (c.JoinRateLimit > 0 || c.MessageRateLimit > 0) && c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate_limit_window must be positive"))
	}
	return errors.Join(errs...)
}

// CoreOptions maps the routing settings onto dispatcher options.
func (c *Config) CoreOptions() core.Options {
	return core.Options{
		SenderPolicy:        core.SenderPolicy(c.SenderPolicy),
		MaxMessageLength:    c.MaxMessageLength,
		EchoPrivateToSender: c.EchoPrivateToSender,
	}
}

// AuthEnabled reports whether WebSocket clients must present a token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// JWT returns the token settings shared by the handshake and token tooling.
func (c *Config) JWT() *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(c.JWTSecret),
		Issuer:   c.JWTIssuer,
		Audience: c.JWTAudience,
		TTL:      c.JWTTTL,
	}
}
