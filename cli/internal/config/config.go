// Package config loads schemadiff settings from config files, .env files
// and SCHEMADIFF_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem the CLI reads and writes through
var AppFs = afero.NewOsFs()

const (
	configName = ".schemadiff"
	envPrefix  = "SCHEMADIFF"
)

// Config holds the application configuration
type Config struct {
	Provider            string   `mapstructure:"provider"`
	DatabaseURL         string   `mapstructure:"database_url"`
	From                string   `mapstructure:"from"`
	To                  string   `mapstructure:"to"`
	Ignore              []string `mapstructure:"ignore"`
	Format              string   `mapstructure:"format"`
	AllowAmbiguousNames bool     `mapstructure:"allow_ambiguous_names"`
	Debug               bool     `mapstructure:"debug"`

	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

// LoadConfig loads configuration from fs. An explicit path must exist;
// otherwise .schemadiff.yaml is searched in the working directory, the home
// directory and ~/.config/schemadiff.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	loadDotEnv(fs)

	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "")
	v.SetDefault("database_url", "")
	v.SetDefault("from", "")
	v.SetDefault("to", "")
	v.SetDefault("ignore", []string{})
	v.SetDefault("format", "text")
	v.SetDefault("allow_ambiguous_names", false)
	v.SetDefault("debug", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "schemadiff"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL != "" {
		expanded, err := homedir.Expand(cfg.DatabaseURL)
		if err == nil {
			cfg.DatabaseURL = expanded
		}
	}

	return cfg, nil
}

// loadDotEnv reads .env and then .env.local from the working directory.
// Values from .env never replace the environment; .env.local does.
func loadDotEnv(fs afero.Fs) {
	apply := func(name string, override bool) {
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			return
		}
		values, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			// Don't fail if the file can't be parsed
			return
		}
		for k, val := range values {
			if _, set := os.LookupEnv(k); set && !override {
				continue
			}
			os.Setenv(k, val)
		}
	}
	apply(".env", false)
	apply(".env.local", true)
}

// SaveConfig writes cfg as YAML to path, or to ~/.config/schemadiff when
// path is empty
func SaveConfig(fs afero.Fs, cfg *Config, path string) (string, error) {
	v := viper.New()
	v.SetFs(fs)
	v.Set("provider", cfg.Provider)
	v.Set("from", cfg.From)
	v.Set("to", cfg.To)
	v.Set("ignore", cfg.Ignore)
	v.Set("format", cfg.Format)
	v.Set("allow_ambiguous_names", cfg.AllowAmbiguousNames)

	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		dir := filepath.Join(home, ".config", "schemadiff")
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		path = filepath.Join(dir, configName+".yaml")
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return path, nil
}
