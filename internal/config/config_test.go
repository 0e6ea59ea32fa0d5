package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/fraud-sim/internal/config"
	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/sample"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, domain.DefaultColumns(), cfg.ColumnName)
}

func TestWithDefaults_FillsOptionalFields(t *testing.T) {
	p := config.WithDefaults(domain.Params{TransactionFrom: "2022-01-01"})
	assert.Equal(t, domain.DefaultColumns(), p.ColumnName)
	assert.Equal(t, sample.DefaultOversampleFactor, p.OversampleFactor)
	assert.Equal(t, string(sample.SplitSeeds), p.SeedStrategy)
	assert.Equal(t, "2022-01-01", p.TransactionFrom)
}

// ─── Loading ──────────────────────────────────────────────────────────────────

func TestLoadFromFile_YAMLFlatParams(t *testing.T) {
	path := writeFile(t, "params.yaml", `
transaction_from: "2022-03-01"
transaction_to: "2022-03-08"
feature_count: 4
transaction_rate_per_second: 0.02
fraud_rate: 0.05
random_state: 42
column_name:
  transaction_date: ts
  transaction_amount: amount
  fraud: is_fraud
  fraud_identified_date: identified_at
output:
  format: jsonl
  compression: snappy
`)
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "2022-03-01", cfg.TransactionFrom)
	assert.Equal(t, "2022-03-08", cfg.TransactionTo)
	assert.Equal(t, 4, cfg.FeatureCount)
	assert.Equal(t, uint64(42), cfg.RandomState)
	assert.Equal(t, "ts", cfg.ColumnName.TransactionDate)
	assert.Equal(t, "jsonl", cfg.Output.Format)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeFile(t, "params.json", `{
		"transaction_from": "2022-01-01",
		"transaction_to": "2022-01-02",
		"feature_count": 3,
		"transaction_rate_per_second": 0.5,
		"fraud_rate": 0.1,
		"random_state": 7,
		"store": {"backend": "redis", "redis_addr": "cache:6379"}
	}`)
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.FeatureCount)
	assert.Equal(t, 0.5, cfg.TransactionRatePerSecond)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, domain.DefaultColumns(), cfg.ColumnName)
}

func TestLoadFromFile_DurationStrings(t *testing.T) {
	yamlPath := writeFile(t, "params.yaml", `
server:
  addr: ":9090"
  read_timeout: 15s
store:
  ttl: 90m
`)
	jsonPath := writeFile(t, "params.json", `{
		"server": {"addr": ":9090", "read_timeout": "15s"},
		"store": {"ttl": "90m"}
	}`)
	for _, path := range []string{yamlPath, jsonPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := config.LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Std())
			assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout.Std())
			assert.Equal(t, 90*time.Minute, cfg.Store.TTL.Std())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d config.Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1500000000`)))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	require.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	require.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := config.Duration(2 * time.Minute).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(out))
}

func TestLoadFromFile_Errors(t *testing.T) {
	cases := map[string]string{
		"missing":     filepath.Join(t.TempDir(), "nope.yaml"),
		"bad yaml":    writeFile(t, "bad.yaml", "feature_count: [1, 2"),
		"unsupported": writeFile(t, "params.toml", "feature_count = 1"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFromFile(path)
			require.Error(t, err)
			assert.Equal(t, simerrors.CodeUnreadableParams, simerrors.GetCode(err))
			assert.Equal(t, simerrors.ErrCategoryConfig, simerrors.GetCategory(err))
			assert.False(t, errors.Is(err, simerrors.ErrInvalidConfiguration))
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FRAUDSIM_FEATURE_COUNT", "12")
	t.Setenv("FRAUDSIM_FRAUD_RATE", "0.2")
	t.Setenv("FRAUDSIM_RANDOM_STATE", "99")
	t.Setenv("FRAUDSIM_OUTPUT_FORMAT", "sqlite")
	t.Setenv("FRAUDSIM_STORE_TTL", "2h")

	cfg := config.DefaultConfig()
	require.NoError(t, config.LoadFromEnv(cfg))

	assert.Equal(t, 12, cfg.FeatureCount)
	assert.Equal(t, 0.2, cfg.FraudRate)
	assert.Equal(t, uint64(99), cfg.RandomState)
	assert.Equal(t, "sqlite", cfg.Output.Format)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL.Std())
}

func TestLoadFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("FRAUDSIM_FEATURE_COUNT", "many")
	t.Setenv("FRAUDSIM_RANDOM_STATE", "-1")

	err := config.LoadFromEnv(config.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRAUDSIM_FEATURE_COUNT")
	assert.Contains(t, err.Error(), "FRAUDSIM_RANDOM_STATE")
}

func TestLoadDotEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, config.LoadDotEnv(missing))

	path := writeFile(t, ".env", "FRAUDSIM_TEST_DOTENV=loaded\n")
	t.Setenv("FRAUDSIM_TEST_DOTENV", "")
	os.Unsetenv("FRAUDSIM_TEST_DOTENV")
	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("FRAUDSIM_TEST_DOTENV"))
}

// ─── Validation ───────────────────────────────────────────────────────────────

func TestValidate_Failures(t *testing.T) {
	cases := map[string]func(*config.Config){
		"bad format":        func(c *config.Config) { c.Output.Format = "parquet" },
		"bad compression":   func(c *config.Config) { c.Output.Compression = "gzip" },
		"inverted range":    func(c *config.Config) { c.TransactionTo = "2021-12-31" },
		"malformed date":    func(c *config.Config) { c.TransactionFrom = "01/01/2022" },
		"s3 without bucket": func(c *config.Config) { c.Storage.Type = "s3" },
		"local without dir": func(c *config.Config) { c.Storage.Type = "local" },
		"redis without addr": func(c *config.Config) {
			c.Store.Backend = "redis"
			c.Store.RedisAddr = ""
		},
		"unknown strategy": func(c *config.Config) { c.SeedStrategy = "random" },
		"oversample":       func(c *config.Config) { c.OversampleFactor = 0.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, simerrors.ErrCategoryConfig, simerrors.GetCategory(err))
		})
	}
}

func TestValidateParams_NonPositiveFeatureCount(t *testing.T) {
	p := config.DefaultParams()
	p.FeatureCount = 0
	err := config.ValidateParams(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FeatureCount")
}

// ─── Resolution ───────────────────────────────────────────────────────────────

func TestSimulation_FraudRateIsMultiplier(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TransactionRatePerSecond = 0.5
	cfg.FraudRate = 0.1

	sc, err := cfg.Simulation()
	require.NoError(t, err)
	assert.Equal(t, 0.5, sc.TransactionRate)
	assert.InDelta(t, 0.05, sc.FraudRate, 1e-12)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), sc.DateFrom)
	assert.Equal(t, time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC), sc.DateTo)
	assert.Equal(t, sample.SplitSeeds, sc.SeedStrategy)
}

func TestOutputFileName(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "sim_data_2022-01-01_2022-01-31.csv", cfg.OutputFileName())

	cfg.Output.Format = "jsonl"
	cfg.Output.Compression = "snappy"
	assert.Equal(t, "sim_data_2022-01-01_2022-01-31.jsonl.sz", cfg.OutputFileName())

	cfg.Output.Format = "sqlite"
	assert.Equal(t, "sim_data_2022-01-01_2022-01-31.sqlite", cfg.OutputFileName())

	cfg.Output.Dir = "out"
	assert.Equal(t, filepath.Join("out", "sim_data_2022-01-01_2022-01-31.sqlite"), cfg.OutputPath())
}
