package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/stagehand-labs/stagehand/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyInstallRoot   = "install_root"
	KeySilent        = "silent"
	KeyStoreDir      = "store_dir"
	KeyRetryAttempts = "retry.attempts"
	KeyRetryDelay    = "retry.delay"
	KeyLogLevel      = "log_level"
)

// Keys lists every recognized setting in display order.
var Keys = []string{KeyInstallRoot, KeySilent, KeyStoreDir, KeyRetryAttempts, KeyRetryDelay, KeyLogLevel}

// Settings is the typed view of the loaded configuration.
type Settings struct {
	InstallRoot   string
	Silent        bool
	StoreDir      string
	RetryAttempts int
	RetryDelay    time.Duration
	LogLevel      string
}

// Dir returns the path to the Stagehand home directory (~/.stagehand/).
// STAGEHAND_HOME overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.stagehand/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// DefaultStoreDir returns where uninstall records live when store_dir is unset.
func DefaultStoreDir() string {
	return filepath.Join(Dir(), "records")
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv(KeyStoreDir, branding.EnvVar("STORE_DIR"), branding.EnvVar("STORE"))

	viper.SetDefault(KeySilent, false)
	viper.SetDefault(KeyRetryAttempts, 5)
	viper.SetDefault(KeyRetryDelay, "200ms")
	viper.SetDefault(KeyLogLevel, "warn")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Current returns the typed settings. Load must have been called.
func Current() Settings {
	s := Settings{
		InstallRoot:   viper.GetString(KeyInstallRoot),
		Silent:        viper.GetBool(KeySilent),
		StoreDir:      viper.GetString(KeyStoreDir),
		RetryAttempts: viper.GetInt(KeyRetryAttempts),
		RetryDelay:    viper.GetDuration(KeyRetryDelay),
		LogLevel:      viper.GetString(KeyLogLevel),
	}
	if s.StoreDir == "" {
		s.StoreDir = DefaultStoreDir()
	}
	if s.RetryAttempts < 1 {
		s.RetryAttempts = 1
	}
	return s
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// All returns every recognized key with its current value, sorted by key.
func All() map[string]string {
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[k] = viper.GetString(k)
	}
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !known(key) {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func known(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
