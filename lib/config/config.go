// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "MATRIXWIRE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the matrixwire client configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment" json:"environment"`

	Account    AccountConfig    `yaml:"account" json:"account"`
	Sync       SyncConfig       `yaml:"sync" json:"sync"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	State      StateConfig      `yaml:"state" json:"state"`
	Transcript TranscriptConfig `yaml:"transcript" json:"transcript"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	TLS        TLSConfig        `yaml:"tls" json:"tls"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *Overrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// Overrides contains the sections an environment may override. Only
// non-zero fields replace base values.
type Overrides struct {
	Account    *AccountConfig    `yaml:"account,omitempty" json:"account,omitempty"`
	Sync       *SyncConfig       `yaml:"sync,omitempty" json:"sync,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty" json:"logging,omitempty"`
	State      *StateConfig      `yaml:"state,omitempty" json:"state,omitempty"`
	Transcript *TranscriptConfig `yaml:"transcript,omitempty" json:"transcript,omitempty"`
	Metrics    *MetricsConfig    `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// AccountConfig identifies the account the client logs in as.
type AccountConfig struct {
	// UserID is the fully qualified Matrix user ID ("@bot:example.org").
	UserID string `yaml:"user_id" json:"user_id"`

	// FallbackHost is used when .well-known discovery fails.
	FallbackHost string `yaml:"fallback_host" json:"fallback_host"`

	// PasswordFile holds the account password ("-" reads stdin). When
	// empty, the CLI prompts on the terminal.
	PasswordFile string `yaml:"password_file" json:"password_file"`

	// DeviceIDFile persists the generated device ID across runs.
	DeviceIDFile string `yaml:"device_id_file" json:"device_id_file"`

	// DeviceDisplayName is sent as initial_device_display_name on login.
	DeviceDisplayName string `yaml:"device_display_name" json:"device_display_name"`

	// MasterUserID receives direct messages from the dm command.
	MasterUserID string `yaml:"master_user_id" json:"master_user_id"`
}

// SyncConfig tunes the transport read loop.
type SyncConfig struct {
	// Timeout is the long-poll timeout requested from the server.
	// Default: 5s
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// ResponseGrace is added to Timeout to bound each exchange.
	// Default: 1s
	ResponseGrace Duration `yaml:"response_grace" json:"response_grace"`

	// PollInterval is how often the connection is polled.
	// Default: 10ms
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// MaxResponseLength caps the stored response body in bytes.
	// Default: 262144
	MaxResponseLength int `yaml:"max_response_length" json:"max_response_length"`
}

// LoggingConfig configures the client's log output.
type LoggingConfig struct {
	// Level is one of error, info, debug. Default: info
	Level string `yaml:"level" json:"level"`
}

// StateConfig configures session persistence between runs.
type StateConfig struct {
	// File is where the session snapshot is written. Empty disables
	// persistence.
	File string `yaml:"file" json:"file"`

	// RecipientFile holds the age public key the snapshot is sealed to.
	// Empty stores the snapshot unencrypted (0600).
	RecipientFile string `yaml:"recipient_file" json:"recipient_file"`

	// IdentityFile holds the age private key that opens the snapshot.
	IdentityFile string `yaml:"identity_file" json:"identity_file"`
}

// TranscriptConfig configures the raw-response diagnostics transcript.
type TranscriptConfig struct {
	// File receives one record per exchange. Empty disables it.
	File string `yaml:"file" json:"file"`

	// Compression is "zstd" (default), "lz4" or "none".
	Compression string `yaml:"compression" json:"compression"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics. Empty disables it.
	Listen string `yaml:"listen" json:"listen"`
}

// TLSConfig configures server verification.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification. Only
	// permitted in the development environment.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// Duration is a time.Duration written as a Go duration string ("5s")
// or a bare integer of milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	return d.parse(node.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		var milliseconds int64
		if numberErr := json.Unmarshal(data, &milliseconds); numberErr != nil {
			return fmt.Errorf("duration must be a string or integer milliseconds: %s", data)
		}
		*d = Duration(time.Duration(milliseconds) * time.Millisecond)
		return nil
	}
	return d.parse(text)
}

func (d *Duration) parse(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(text); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if milliseconds, err := strconv.ParseInt(text, 10, 64); err == nil {
		*d = Duration(time.Duration(milliseconds) * time.Millisecond)
		return nil
	}
	return fmt.Errorf("invalid duration %q", text)
}

// Default returns the configuration every file is merged onto.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateRoot := filepath.Join(homeDir, ".local", "state", "matrixwire")

	return &Config{
		Environment: Development,
		Account: AccountConfig{
			DeviceIDFile:      filepath.Join(stateRoot, "device_id"),
			DeviceDisplayName: "matrixwire",
		},
		Sync: SyncConfig{
			Timeout:           Duration(5 * time.Second),
			ResponseGrace:     Duration(time.Second),
			PollInterval:      Duration(10 * time.Millisecond),
			MaxResponseLength: 256 << 10,
		},
		Logging: LoggingConfig{Level: "info"},
		Transcript: TranscriptConfig{
			Compression: "zstd",
		},
	}
}

// Load loads configuration from the file named by MATRIXWIRE_CONFIG.
// There is no discovery: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your matrixwire config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path. Files ending in .json or
// .jsonc are parsed as JSON with comments and trailing commas; anything
// else is YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if account := overrides.Account; account != nil {
		override(&c.Account.UserID, account.UserID)
		override(&c.Account.FallbackHost, account.FallbackHost)
		override(&c.Account.PasswordFile, account.PasswordFile)
		override(&c.Account.DeviceIDFile, account.DeviceIDFile)
		override(&c.Account.DeviceDisplayName, account.DeviceDisplayName)
		override(&c.Account.MasterUserID, account.MasterUserID)
	}
	if sync := overrides.Sync; sync != nil {
		override(&c.Sync.Timeout, sync.Timeout)
		override(&c.Sync.ResponseGrace, sync.ResponseGrace)
		override(&c.Sync.PollInterval, sync.PollInterval)
		override(&c.Sync.MaxResponseLength, sync.MaxResponseLength)
	}
	if logging := overrides.Logging; logging != nil {
		override(&c.Logging.Level, logging.Level)
	}
	if state := overrides.State; state != nil {
		override(&c.State.File, state.File)
		override(&c.State.RecipientFile, state.RecipientFile)
		override(&c.State.IdentityFile, state.IdentityFile)
	}
	if transcript := overrides.Transcript; transcript != nil {
		override(&c.Transcript.File, transcript.File)
		override(&c.Transcript.Compression, transcript.Compression)
	}
	if metrics := overrides.Metrics; metrics != nil {
		override(&c.Metrics.Listen, metrics.Listen)
	}
}

func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	for _, field := range []*string{
		&c.Account.PasswordFile,
		&c.Account.DeviceIDFile,
		&c.State.File,
		&c.State.RecipientFile,
		&c.State.IdentityFile,
		&c.Transcript.File,
	} {
		*field = expandVars(*field, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Account.UserID != "" {
		if !strings.HasPrefix(c.Account.UserID, "@") || !strings.Contains(c.Account.UserID, ":") {
			errs = append(errs, fmt.Errorf("account.user_id must look like @localpart:server, got %q", c.Account.UserID))
		}
	}
	if c.Account.MasterUserID != "" && !strings.HasPrefix(c.Account.MasterUserID, "@") {
		errs = append(errs, fmt.Errorf("account.master_user_id must start with @, got %q", c.Account.MasterUserID))
	}

	if c.Sync.Timeout < 0 {
		errs = append(errs, fmt.Errorf("sync.timeout must not be negative"))
	}
	if c.Sync.ResponseGrace <= 0 {
		errs = append(errs, fmt.Errorf("sync.response_grace must be positive"))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync.poll_interval must be positive"))
	}
	if c.Sync.MaxResponseLength <= 0 {
		errs = append(errs, fmt.Errorf("sync.max_response_length must be positive"))
	}

	logLevels := []string{"error", "info", "debug"}
	if !contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}

	compressions := []string{"zstd", "lz4", "none"}
	if !contains(compressions, c.Transcript.Compression) {
		errs = append(errs, fmt.Errorf("transcript.compression must be one of: %v", compressions))
	}

	if c.State.RecipientFile != "" && c.State.File == "" {
		errs = append(errs, fmt.Errorf("state.recipient_file requires state.file"))
	}
	if (c.State.RecipientFile == "") != (c.State.IdentityFile == "") {
		errs = append(errs, fmt.Errorf("state.recipient_file and state.identity_file must be set together"))
	}

	if c.TLS.InsecureSkipVerify && c.Environment != Development {
		errs = append(errs, fmt.Errorf("tls.insecure_skip_verify is only allowed in the development environment"))
	}

	return errors.Join(errs...)
}

// EnsureStateDirectories creates the parent directories of every
// configured output file.
func (c *Config) EnsureStateDirectories() error {
	for _, path := range []string{c.Account.DeviceIDFile, c.State.File, c.Transcript.File} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
