// Package config loads dbsync settings from a config file, .env files and
// the environment.
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

	"github.com/koba/dbsync/internal/database"
)

// ErrMissingSetting is returned by Validate when a required setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Config holds the application configuration
type Config struct {
	Database      database.Config
	SchemaPaths   []string
	SeparateAlter bool
	NoDropColumn  bool
}

// envKeys maps config keys to environment variables.
var envKeys = map[string]string{
	"db.type":        "DB_TYPE",
	"db.host":        "DB_HOST",
	"db.port":        "DB_PORT",
	"db.name":        "DB_NAME",
	"db.user":        "DB_USER",
	"db.password":    "DB_PASSWORD",
	"db.driver":      "DB_DRIVER",
	"db.path":        "DB_PATH",
	"schema_paths":   "DBSYNC_SCHEMA_PATHS",
	"separate_alter": "DBSYNC_SEPARATE_ALTER",
	"no_drop_column": "DBSYNC_NO_DROP_COLUMN",
}

// Load reads the configuration. path names an explicit config file; when
// empty, .dbsync.yaml is searched in the working directory, $HOME and
// $HOME/.config/dbsync and may be absent. Real environment variables win
// over .env.local, which wins over .env and the config file.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		v.SetConfigName(".dbsync")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "dbsync"))
	}

	v.SetDefault("db.host", "localhost")
	v.SetDefault("schema_paths", []string{"schema"})
	v.SetDefault("separate_alter", false)
	v.SetDefault("no_drop_column", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	dotenv, err := readDotenv(fs, ".env", ".env.local")
	if err != nil {
		return nil, err
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if val, ok := dotenv[env]; ok {
			v.Set(key, val)
		}
	}

	cfg := &Config{
		Database: database.Config{
			Type:     v.GetString("db.type"),
			Driver:   v.GetString("db.driver"),
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			Database: v.GetString("db.name"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Path:     v.GetString("db.path"),
		},
		SchemaPaths:   splitList(v.GetStringSlice("schema_paths")),
		SeparateAlter: v.GetBool("separate_alter"),
		NoDropColumn:  v.GetBool("no_drop_column"),
	}

	if cfg.Database.Port == "" {
		switch strings.ToLower(cfg.Database.Type) {
		case "mysql", "mariadb":
			cfg.Database.Port = "3306"
		case "postgres", "postgresql", "pgsql":
			cfg.Database.Port = "5432"
		}
	}
	if cfg.Database.Path == "" && isSQLite(cfg.Database.Type) {
		cfg.Database.Path = cfg.Database.Database
	}

	return cfg, nil
}

// Validate checks that a database can be opened with the configuration.
func (c *Config) Validate() error {
	if c.Database.Type == "" {
		return fmt.Errorf("%w: DB_TYPE", ErrMissingSetting)
	}
	if _, err := database.NormalizeDialect(c.Database.Type); err != nil {
		return err
	}
	if isSQLite(c.Database.Type) {
		if c.Database.Path == "" {
			return fmt.Errorf("%w: DB_PATH", ErrMissingSetting)
		}
		return nil
	}
	if c.Database.Database == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingSetting)
	}
	return nil
}

func isSQLite(dbType string) bool {
	dialect, err := database.NormalizeDialect(dbType)
	return err == nil && dialect == database.DialectSQLite
}

// readDotenv parses the given files in order, later files overriding
// earlier ones. Missing files are skipped.
func readDotenv(fs afero.Fs, names ...string) (map[string]string, error) {
	values := make(map[string]string)
	for _, name := range names {
		data, err := afero.ReadFile(fs, name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		parsed, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, val := range parsed {
			values[k] = val
		}
	}
	return values, nil
}

// splitList accepts both YAML lists and comma-separated environment values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
