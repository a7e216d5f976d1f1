package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// CredentialsEnv is the environment variable holding "<username>:<clientkey>"
const CredentialsEnv = "HUE_PRESENCE_CREDENTIALS"

// Config represents the application configuration
type Config struct {
	Hue      HueConfig      `yaml:"hue"`
	Presence PresenceConfig `yaml:"presence"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge      string   `yaml:"bridge"`      // Static bridge address, skips discovery when set
	Credentials string   `yaml:"credentials"` // "<username>:<clientkey>", falls back to HUE_PRESENCE_CREDENTIALS
	Timeout     Duration `yaml:"timeout"`     // HTTP timeout for Hue API requests
	AppName     string   `yaml:"app_name"`
	DeviceName  string   `yaml:"device_name"`
}

// PresenceConfig contains presence sensor settings
type PresenceConfig struct {
	Name         string `yaml:"name"`         // Sensor name override (default: hostname)
	Script       string `yaml:"script"`       // Optional Lua hook defining sensor_name(hostname, value)
	Manufacturer string `yaml:"manufacturer"` // manufacturername of created sensors
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // Empty disables the audit ledger
}

// LedgerConfig contains audit ledger settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		// Expand environment variables
		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	// Hue defaults
	if cfg.Hue.Credentials == "" {
		cfg.Hue.Credentials = os.Getenv(CredentialsEnv)
	}
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(30 * time.Second)
	}
	if cfg.Hue.AppName == "" {
		cfg.Hue.AppName = "hue-presence"
	}
	if cfg.Hue.DeviceName == "" {
		cfg.Hue.DeviceName = "hue-presence"
	}

	if cfg.Presence.Manufacturer == "" {
		cfg.Presence.Manufacturer = "hue-presence"
	}

	// Ledger defaults
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

