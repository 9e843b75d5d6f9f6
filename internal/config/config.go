// Package config loads osreport settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing precedence. Command-line
// flags bound by the cmd package win over all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"osreport/internal/api"
)

// EnvPrefix prefixes every environment override, e.g. OSREPORT_API_URL.
const EnvPrefix = "OSREPORT"

// Config is the resolved configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Log     LogConfig     `mapstructure:"log"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RefreshConfig struct {
	ReloadDelay time.Duration `mapstructure:"reload_delay"`
}

type DemoConfig struct {
	Addr     string        `mapstructure:"addr"`
	Token    string        `mapstructure:"token"`
	Projects int           `mapstructure:"projects"`
	Pace     time.Duration `mapstructure:"pace"`
}

// New returns a viper instance carrying the defaults and env bindings.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("api.url", "http://localhost:8080")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", api.DefaultTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "osreport.log")
	v.SetDefault("refresh.reload_delay", time.Second)
	v.SetDefault("demo.addr", ":8080")
	v.SetDefault("demo.token", "")
	v.SetDefault("demo.projects", 4)
	v.SetDefault("demo.pace", 150*time.Millisecond)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The inventory service itself reads API_TOKEN; accept it too.
	_ = v.BindEnv("api.token", EnvPrefix+"_API_TOKEN", "API_TOKEN")
	_ = v.BindEnv("demo.token", EnvPrefix+"_DEMO_TOKEN", "API_TOKEN")

	return v
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load reads the config file into v and decodes the result. With an empty
// cfgFile, osreport.yaml is searched in the working directory and in
// $HOME/.config/osreport; not finding one is fine.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("osreport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "osreport"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals the current settings of v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = api.DefaultTimeout
	}
	return &cfg, nil
}

// WatchToken re-reads the config file on change and pushes a changed API
// token into creds. It does nothing when no config file was loaded.
func WatchToken(v *viper.Viper, creds *api.Credentials, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		tokenChanged(v, creds, logger, e)
	})
	v.WatchConfig()
}

func tokenChanged(v *viper.Viper, creds *api.Credentials, logger *slog.Logger, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	token := v.GetString("api.token")
	if token == creds.Token() {
		return
	}
	creds.Set(token)
	if logger != nil {
		logger.Info("api token reloaded", "file", e.Name)
	}
}
