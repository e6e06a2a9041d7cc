// Package config provides the configuration schema and loader for the
// chatwarden AI chat overlay.
package config

// LogLevel controls log verbosity for the chatwarden service.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CredentialMode selects how the completion service is authenticated.
type CredentialMode string

const (
	// CredentialShared uses one service credential for every player.
	CredentialShared CredentialMode = "shared"

	// CredentialPerPlayer looks up a stored credential per player; a player
	// without one can hold a session but every submission fails until a
	// credential is registered.
	CredentialPerPlayer CredentialMode = "per-player"
)

// IsValid reports whether m is a recognised credential mode.
func (m CredentialMode) IsValid() bool {
	return m == CredentialShared || m == CredentialPerPlayer
}

// Dialect selects the relational backend for the persistence adapter.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// IsValid reports whether d is a recognised database dialect.
func (d Dialect) IsValid() bool {
	switch d {
	case DialectSQLite, DialectMySQL, DialectPostgres:
		return true
	}
	return false
}

// MailType selects an SMTP host preset for transcript export.
type MailType string

const (
	MailGmail   MailType = "gmail"
	MailOutlook MailType = "outlook"
)

// Config is the root configuration structure, typically loaded from a YAML
// file with [Load]. Secrets can additionally be injected from the
// environment; see [ApplyEnv].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	AI       AIConfig       `yaml:"ai"`
	Rules    RulesConfig    `yaml:"rules"`
	Mail     MailConfig     `yaml:"mail"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9091"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AIConfig configures the completion service binding.
type AIConfig struct {
	// CredentialMode is "shared" or "per-player".
	CredentialMode CredentialMode `yaml:"credential_mode"`

	// APIKey is the shared service credential. Ignored in per-player mode.
	APIKey string `yaml:"api_key" env:"CHATWARDEN_API_KEY"`

	// SystemPrompt is an optional instruction prepended to every request.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens"`

	// Platforms maps a platform name (e.g., "openai", "anthropic",
	// "ollama") to the model names players may select. A start command
	// naming an unlisted platform or model is rejected.
	Platforms map[string][]string `yaml:"platforms"`
}

// RulesConfig locates the rule-file tree.
type RulesConfig struct {
	// Dir is the root directory scanned recursively for rule files.
	// Created and seeded with defaults when absent or empty.
	Dir string `yaml:"dir"`
}

// MailConfig configures transcript export by email.
type MailConfig struct {
	// Enable turns transcript export on. When a quitting player has an
	// email on file, their transcript is mailed to it.
	Enable bool `yaml:"enable"`

	// Type selects an SMTP host preset ("gmail" or "outlook"). Unknown
	// values fall back to gmail with a warning.
	Type MailType `yaml:"type"`

	// Host overrides the preset SMTP host. Optional.
	Host string `yaml:"host"`

	// Port is the SMTP submission port. Default 587.
	Port int `yaml:"port"`

	// From is the sender address, also used as the SMTP username.
	From string `yaml:"from"`

	// Password is the SMTP credential.
	Password string `yaml:"password" env:"CHATWARDEN_MAIL_PASSWORD"`
}

// DatabaseConfig selects and locates the relational backend. Which dialect is
// chosen has no behavioral effect beyond connectivity.
type DatabaseConfig struct {
	// Dialect is "sqlite", "mysql" or "postgres".
	Dialect Dialect `yaml:"dialect"`

	// DSN is the dialect-specific connection string: a file path for
	// sqlite, a go-sql-driver DSN for mysql, a pgx URL for postgres.
	DSN string `yaml:"dsn" env:"CHATWARDEN_DATABASE_DSN"`
}
