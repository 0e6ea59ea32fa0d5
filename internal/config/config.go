// Package config loads the simulation parameters and the settings of the
// I/O wrappers around the simulator.
//
// The params file keeps the flat layout of the original experiment params
// (transaction_from, transaction_to, feature_count, ...); output, storage,
// server and store settings live in their own sections of the same file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/sample"
	"lumina/fraud-sim/internal/simulator"
)

// DateLayout is the layout of transaction_from and transaction_to.
const DateLayout = "2006-01-02"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FRAUDSIM_"

// Config holds the full configuration of the simulate and server commands.
type Config struct {
	domain.Params `yaml:",inline"`

	// Output controls how the dataset is written locally
	Output OutputConfig `json:"output" yaml:"output"`

	// Storage controls where the written dataset is uploaded
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Server configures the HTTP simulation service
	Server ServerConfig `json:"server" yaml:"server"`

	// Store configures where the service keeps finished runs
	Store StoreConfig `json:"store" yaml:"store"`
}

// OutputConfig holds dataset output settings.
type OutputConfig struct {
	// Dir is the directory the dataset file is written to
	Dir string `json:"dir" yaml:"dir" validate:"required"`

	// Format is the file format: csv, jsonl or sqlite
	Format string `json:"format" yaml:"format" validate:"oneof=csv jsonl sqlite"`

	// Compression applies to csv and jsonl: none or snappy
	Compression string `json:"compression" yaml:"compression" validate:"oneof=none snappy"`
}

// StorageConfig holds object storage settings for uploading datasets.
type StorageConfig struct {
	// Type is none, local or s3
	Type string `json:"type" yaml:"type" validate:"oneof=none local s3"`

	// Path is the base directory for local storage
	Path string `json:"path" yaml:"path" validate:"required_if=Type local"`

	// Prefix is prepended to every object key
	Prefix string `json:"prefix" yaml:"prefix"`

	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket" validate:"required_if=Type s3"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr" validate:"required"`
	ReadTimeout  Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// StoreConfig holds run store settings.
type StoreConfig struct {
	// Backend is memory or redis
	Backend string `json:"backend" yaml:"backend" validate:"oneof=memory redis"`

	// RedisAddr is the Redis address used by the redis backend
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`

	// TTL is how long a run is kept by the redis backend
	TTL Duration `json:"ttl" yaml:"ttl"`
}

// DefaultParams returns the parameter set used when no params file is given.
func DefaultParams() domain.Params {
	return domain.Params{
		TransactionFrom:          "2022-01-01",
		TransactionTo:            "2022-01-31",
		FeatureCount:             10,
		TransactionRatePerSecond: 0.01,
		FraudRate:                0.01,
		RandomState:              12321,
		ColumnName:               domain.DefaultColumns(),
		OversampleFactor:         sample.DefaultOversampleFactor,
		SeedStrategy:             string(sample.SplitSeeds),
	}
}

// WithDefaults fills the optional fields of a parameter set that was given
// without them.
func WithDefaults(p domain.Params) domain.Params {
	if p.ColumnName == (domain.Columns{}) {
		p.ColumnName = domain.DefaultColumns()
	}
	if p.OversampleFactor == 0 {
		p.OversampleFactor = sample.DefaultOversampleFactor
	}
	if p.SeedStrategy == "" {
		p.SeedStrategy = string(sample.SplitSeeds)
	}
	return p
}

// DefaultConfig returns the default configuration for local experiments.
func DefaultConfig() *Config {
	return &Config{
		Params: DefaultParams(),
		Output: OutputConfig{
			Dir:         ".",
			Format:      "csv",
			Compression: "none",
		},
		Storage: StorageConfig{
			Type:   "none",
			Region: "us-east-1",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Store: StoreConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       Duration(24 * time.Hour),
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerrors.Wrap(simerrors.ErrCategoryConfig, simerrors.CodeUnreadableParams, "failed to read config file", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, simerrors.Wrap(simerrors.ErrCategoryConfig, simerrors.CodeUnreadableParams, "failed to parse YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, simerrors.Wrap(simerrors.ErrCategoryConfig, simerrors.CodeUnreadableParams, "failed to parse JSON config", err)
		}
	default:
		return nil, simerrors.New(simerrors.ErrCategoryConfig, simerrors.CodeUnreadableParams, fmt.Sprintf("unsupported config file format: %s", ext))
	}

	return cfg, nil
}

// LoadDotEnv loads environment files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv applies FRAUDSIM_* environment overrides to cfg.
func LoadFromEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, parse func(string) error) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			if err := parse(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			}
		}
	}

	// Simulation parameters
	str("TRANSACTION_FROM", &cfg.TransactionFrom)
	str("TRANSACTION_TO", &cfg.TransactionTo)
	str("SEED_STRATEGY", &cfg.SeedStrategy)
	num("FEATURE_COUNT", func(v string) (err error) {
		cfg.FeatureCount, err = strconv.Atoi(v)
		return err
	})
	num("TRANSACTION_RATE_PER_SECOND", func(v string) (err error) {
		cfg.TransactionRatePerSecond, err = strconv.ParseFloat(v, 64)
		return err
	})
	num("FRAUD_RATE", func(v string) (err error) {
		cfg.FraudRate, err = strconv.ParseFloat(v, 64)
		return err
	})
	num("RANDOM_STATE", func(v string) (err error) {
		cfg.RandomState, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	num("OVERSAMPLE_FACTOR", func(v string) (err error) {
		cfg.OversampleFactor, err = strconv.ParseFloat(v, 64)
		return err
	})

	// Output configuration
	str("OUTPUT_DIR", &cfg.Output.Dir)
	str("OUTPUT_FORMAT", &cfg.Output.Format)
	str("OUTPUT_COMPRESSION", &cfg.Output.Compression)

	// Storage configuration
	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("STORAGE_PREFIX", &cfg.Storage.Prefix)
	str("S3_BUCKET", &cfg.Storage.Bucket)
	str("S3_REGION", &cfg.Storage.Region)
	str("S3_ENDPOINT", &cfg.Storage.Endpoint)

	// Server and store configuration
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("REDIS_ADDR", &cfg.Store.RedisAddr)
	num("STORE_TTL", cfg.Store.TTL.parse)

	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field formats and the cross-field invariants.
func (c *Config) Validate() error {
	if err := ValidateParams(c.Params); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return simerrors.NewConfigError(describe(err))
	}
	return nil
}

// ValidateParams checks a parameter set on its own, as submitted to the
// HTTP service, and resolves it into a simulator configuration to catch
// range errors.
func ValidateParams(p domain.Params) error {
	if err := validate.Struct(p); err != nil {
		return simerrors.NewConfigError(describe(err))
	}
	sc, err := Simulation(p)
	if err != nil {
		return err
	}
	return sc.Validate()
}

// Simulation converts a parameter set into the simulator configuration.
// The params fraud_rate is a multiplier on the base transaction rate.
func Simulation(p domain.Params) (simulator.Config, error) {
	from, err := time.Parse(DateLayout, p.TransactionFrom)
	if err != nil {
		return simulator.Config{}, simerrors.NewConfigError(fmt.Sprintf("transaction_from: %v", err))
	}
	to, err := time.Parse(DateLayout, p.TransactionTo)
	if err != nil {
		return simulator.Config{}, simerrors.NewConfigError(fmt.Sprintf("transaction_to: %v", err))
	}
	if !from.Before(to) {
		return simulator.Config{}, simerrors.NewConfigError("transaction_from must be before transaction_to")
	}

	return simulator.Config{
		DateFrom:         from,
		DateTo:           to,
		TransactionRate:  p.TransactionRatePerSecond,
		FraudRate:        p.TransactionRatePerSecond * p.FraudRate,
		NFeatures:        p.FeatureCount,
		RandomState:      p.RandomState,
		OversampleFactor: p.OversampleFactor,
		SeedStrategy:     sample.SeedStrategy(p.SeedStrategy),
		Columns:          p.ColumnName,
	}, nil
}

// Simulation returns the simulator configuration of c.
func (c *Config) Simulation() (simulator.Config, error) {
	return Simulation(c.Params)
}

// OutputFileName returns the dataset file name for the configured date range
// and output settings, e.g. sim_data_2022-01-01_2022-01-31.csv.
func (c *Config) OutputFileName() string {
	ext := c.Output.Format
	if ext == "" {
		ext = "csv"
	}
	name := fmt.Sprintf("sim_data_%s_%s.%s", c.TransactionFrom, c.TransactionTo, ext)
	if c.Output.Compression == "snappy" && ext != "sqlite" {
		name += ".sz"
	}
	return name
}

// OutputPath joins the output directory and OutputFileName.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, c.OutputFileName())
}

// describe flattens validator errors into one message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
