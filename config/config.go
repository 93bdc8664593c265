// Package config loads quarry connection settings from YAML and opens a
// configured session.
package config

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/schema"
)

// Pluralizer names accepted by the pluralizer option.
const (
	PluralizerConvention = "convention"
	PluralizerEnglish    = "english"
)

// Config holds the connection and table naming settings.
//
//	dialect: postgres
//	dsn: postgres://localhost/app?sslmode=disable
//	pluralize_table_names: true
//	pluralizer: english
//	debug: false
//	slow_query_threshold: 250ms
type Config struct {
	// Dialect is one of the dialect package names.
	Dialect string `yaml:"dialect"`
	// Driver overrides the database/sql driver name derived from Dialect.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
	// PluralizeTableNames defaults to true when omitted.
	PluralizeTableNames *bool  `yaml:"pluralize_table_names,omitempty"`
	Pluralizer          string `yaml:"pluralizer,omitempty"`
	// Debug logs every statement with slog.
	Debug bool `yaml:"debug,omitempty"`
	// SlowQueryThreshold enables statistics collection and slow query
	// logging when positive.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold,omitempty"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting of the config.
func (c *Config) Validate() error {
	var errs []error
	if c.Dialect == "" {
		errs = append(errs, errors.New("dialect is required"))
	} else if !dialect.Known(c.Dialect) {
		errs = append(errs, fmt.Errorf("unknown dialect %q", c.Dialect))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	switch c.Pluralizer {
	case "", PluralizerConvention, PluralizerEnglish:
	default:
		errs = append(errs, fmt.Errorf("unknown pluralizer %q", c.Pluralizer))
	}
	if c.SlowQueryThreshold < 0 {
		errs = append(errs, errors.New("slow_query_threshold must not be negative"))
	}
	return errors.Join(errs...)
}

// Pluralize reports whether table names are pluralized.
func (c *Config) Pluralize() bool {
	return c.PluralizeTableNames == nil || *c.PluralizeTableNames
}

// DriverName returns the database/sql driver name to open.
func (c *Config) DriverName() string {
	if c.Driver != "" {
		return c.Driver
	}
	return sql.DriverName(c.Dialect)
}

// Options returns the driver options described by the config.
func (c *Config) Options() []sql.Option {
	if c.Pluralize() && c.Pluralizer == PluralizerEnglish {
		return []sql.Option{sql.WithPluralizer(schema.English)}
	}
	return []sql.Option{sql.WithPluralize(c.Pluralize())}
}

// Open opens the database and returns a session. The debug and statistics
// wrappers are applied in that order when enabled.
func (c *Config) Open() (sql.Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	db, err := stdsql.Open(c.DriverName(), c.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", c.Dialect, err)
	}
	return c.Wrap(sql.OpenDB(c.Dialect, db, c.Options()...)), nil
}

// Wrap applies the debug and statistics wrappers to a session.
func (c *Config) Wrap(s sql.Session) sql.Session {
	if c.Debug {
		s = sql.NewDebugDriver(s, sql.DebugWithLog(func(ctx context.Context, v ...any) {
			slog.InfoContext(ctx, fmt.Sprint(v...), "dialect", c.Dialect)
		}))
	}
	if c.SlowQueryThreshold > 0 {
		s = sql.NewStatsDriver(s, sql.WithSlowThreshold(c.SlowQueryThreshold), sql.WithSlowQueryLog())
	}
	return s
}
