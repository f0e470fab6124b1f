package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"secretline/internal/domain"
)

// EnvPrefix prefixes every environment variable read by Config.
const EnvPrefix = "SECRETLINE"

// Store backends.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string        `mapstructure:"home"`       // data directory, e.g. $HOME/.secretline
	RelayURL     string        `mapstructure:"relay"`      // relay base URL, e.g. http://127.0.0.1:8080
	Member       string        `mapstructure:"member"`     // our member id on the relay
	Passphrase   string        `mapstructure:"passphrase"` // seals the local store when set
	Store        string        `mapstructure:"store"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	GroupKeyBits int           `mapstructure:"group_key_bits"`
	ScryptN      int           `mapstructure:"scrypt_n"`
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	home := ".secretline"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".secretline")
	}
	v.SetDefault("home", home)
	v.SetDefault("relay", "http://127.0.0.1:8080")
	v.SetDefault("member", "")
	v.SetDefault("passphrase", "")
	v.SetDefault("store", StoreFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("group_key_bits", domain.SymmetricKeyBits256)
	v.SetDefault("scrypt_n", 0)
}

// BindFlags registers the persistent CLI flags on fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "config file (default <home>/config.yaml)")
	fs.String("home", "", "data dir (default ~/.secretline)")
	fs.String("relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	fs.StringP("member", "m", "", "your member id")
	fs.StringP("passphrase", "p", "", "passphrase sealing local keys")
	fs.String("store", "", "key store backend: file, badger or memory")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (text or json)")
	fs.Duration("http-timeout", 0, "relay request timeout")
	fs.Int("group-key-bits", 0, "size of one-time group message keys (128 or 256)")

	binds := map[string]string{
		"home":           "home",
		"relay":          "relay",
		"member":         "member",
		"passphrase":     "passphrase",
		"store":          "store",
		"log_level":      "log-level",
		"log_format":     "log-format",
		"http_timeout":   "http-timeout",
		"group_key_bits": "group-key-bits",
	}
	for key, flag := range binds {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// LoadConfig reads the optional config file and returns the validated config.
// configFile may be empty, in which case <home>/config.yaml is tried.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("home"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. It does not require a member id; commands
// that act as a member call RequireMember.
func (c Config) Validate() error {
	if c.Home == "" && c.Store != StoreMemory {
		return errors.New("config: home is required")
	}
	switch c.Store {
	case StoreFile, StoreBadger, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.RelayURL != "" {
		u, err := url.Parse(c.RelayURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: relay must be an http(s) URL, got %q", c.RelayURL)
		}
	}
	if c.GroupKeyBits != domain.SymmetricKeyBits128 && c.GroupKeyBits != domain.SymmetricKeyBits256 {
		return fmt.Errorf("config: group_key_bits must be 128 or 256, got %d", c.GroupKeyBits)
	}
	if c.ScryptN != 0 && (c.ScryptN < 2 || c.ScryptN&(c.ScryptN-1) != 0) {
		return fmt.Errorf("config: scrypt_n must be a power of two, got %d", c.ScryptN)
	}
	if c.HTTPTimeout < 0 {
		return errors.New("config: http_timeout must not be negative")
	}
	return nil
}

// RequireMember fails when no member id is configured.
func (c Config) RequireMember() error {
	if c.Member == "" {
		return errors.New("member id required (--member or SECRETLINE_MEMBER)")
	}
	return nil
}
