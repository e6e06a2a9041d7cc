package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// KnownPlatforms lists the completion platforms the bundled provider
// adapters can serve. Used by [Validate] to warn about unknown names.
var KnownPlatforms = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
	"llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path, overlays environment
// secrets, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays environment secrets,
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays secret fields from the environment (see the env tags on
// [AIConfig], [MailConfig] and [DatabaseConfig]). Environment values win over
// file values so deployments can keep credentials out of config files.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: environment overlay: %w", err)
	}
	return nil
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.AI.CredentialMode == "" {
		cfg.AI.CredentialMode = CredentialShared
	}
	if cfg.Rules.Dir == "" {
		cfg.Rules.Dir = "rules"
	}
	if cfg.Mail.Type == "" {
		cfg.Mail.Type = MailGmail
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = DialectSQLite
	}
	if cfg.Database.Dialect == DialectSQLite && cfg.Database.DSN == "" {
		cfg.Database.DSN = "chatwarden.db"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.AI.CredentialMode.IsValid() {
		errs = append(errs, fmt.Errorf("ai.credential_mode %q is invalid; valid values: shared, per-player", cfg.AI.CredentialMode))
	}
	if cfg.AI.CredentialMode == CredentialShared && cfg.AI.APIKey == "" {
		slog.Warn("ai.credential_mode is shared but ai.api_key is empty; dispatches will fail until a key is provided")
	}
	if len(cfg.AI.Platforms) == 0 {
		errs = append(errs, errors.New("ai.platforms must list at least one platform with its models"))
	}
	for platform, models := range cfg.AI.Platforms {
		if !knownPlatform(platform) {
			slog.Warn("unknown platform name — may be a typo or unsupported backend",
				"platform", platform,
				"known", KnownPlatforms,
			)
		}
		if len(models) == 0 {
			errs = append(errs, fmt.Errorf("ai.platforms.%s must list at least one model", platform))
		}
	}

	if cfg.Mail.Enable {
		if cfg.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required when mail.enable is true"))
		}
		if cfg.Mail.Password == "" {
			slog.Warn("mail.enable is true but mail.password is empty; transcript export will fail")
		}
		if cfg.Mail.Type != MailGmail && cfg.Mail.Type != MailOutlook && cfg.Mail.Host == "" {
			slog.Warn("unknown mail.type and no mail.host override; defaulting to gmail", "type", cfg.Mail.Type)
		}
	}

	if !cfg.Database.Dialect.IsValid() {
		errs = append(errs, fmt.Errorf("database.dialect %q is invalid; valid values: sqlite, mysql, postgres", cfg.Database.Dialect))
	}
	if cfg.Database.Dialect != DialectSQLite && cfg.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn is required for dialect %q", cfg.Database.Dialect))
	}

	return errors.Join(errs...)
}

// knownPlatform reports whether name is served by a bundled adapter.
func knownPlatform(name string) bool {
	for _, p := range KnownPlatforms {
		if p == name {
			return true
		}
	}
	return false
}
