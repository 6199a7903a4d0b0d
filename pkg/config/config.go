package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"SetupScan/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 keeps event streams open
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins"` // empty allows any origin
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format    string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"setupscan.logs"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Scanner  ScannerConfig `yaml:"scanner"`
	Finnhub  struct {
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"required,url"`
		Resolution   string        `yaml:"resolution" default:"D"`
		LookbackDays int           `yaml:"lookback_days" default:"120" validate:"gte=1"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		Options      bool          `yaml:"options"`
		Retries      int           `yaml:"retries" default:"2" validate:"gte=0,lte=5"`
		RateLimit    struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"rate_limit"`
	} `yaml:"finnhub"`
	Analysis struct {
		MinBars int `yaml:"min_bars" default:"55" validate:"gte=20"`
	} `yaml:"analysis"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"gte=1"`
		L1TTL         time.Duration `yaml:"l1_ttl" default:"1m"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"setupscan"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			MinIdle  int    `yaml:"min_idle" default:"2"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Archive struct {
		Type string `yaml:"type" default:"none" validate:"oneof=none clickhouse postgres"`
	} `yaml:"archive"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"setupscan"`
		Table            string        `yaml:"table" default:"scan_results"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	} `yaml:"clickhouse"`
	Postgres struct {
		URL               string        `yaml:"url"`
		MaxConns          int32         `yaml:"max_conns" default:"10"`
		MinConns          int32         `yaml:"min_conns" default:"2"`
		MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime" default:"30m"`
		MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time" default:"5m"`
		HealthCheckPeriod time.Duration `yaml:"health_check_period" default:"30s"`
	} `yaml:"postgres"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"scan.completed"`
		RecordsTopic string   `yaml:"records_topic" default:"scan.records"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// ScannerConfig drives the batch scan and the single-symbol probe.
type ScannerConfig struct {
	MaxWorkers    int           `yaml:"max_workers" default:"5" validate:"gte=1,lte=64"`
	OutputDir     string        `yaml:"output_dir" default:"scanner_results" validate:"required"`
	Symbols       []string      `yaml:"symbols"`
	SymbolsFile   string        `yaml:"symbols_file" default:"nasdaq100_tickers.txt"`
	RequestDelay  time.Duration `yaml:"request_delay" default:"100ms" validate:"gte=0"`
	SymbolTimeout time.Duration `yaml:"symbol_timeout" default:"30s" validate:"gte=0"`
	PollInterval  time.Duration `yaml:"poll_interval" default:"500ms" validate:"gt=0"`
	ProbeCacheTTL time.Duration `yaml:"probe_cache_ttl" default:"5m"`
	ProbeRate     struct {
		Capacity     float64 `yaml:"capacity" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
	} `yaml:"probe_rate"`
	Filters FiltersConfig `yaml:"filters"`
}

// FiltersConfig mirrors the flat filter layout of the YAML file.
type FiltersConfig struct {
	Trend         []string `yaml:"trend" default:"[\"bullish\",\"bearish\",\"neutral\"]"`
	PCRMin        float64  `yaml:"pcr_min" default:"0"`
	PCRMax        float64  `yaml:"pcr_max" default:"2"`
	RSIMin        float64  `yaml:"rsi_min" default:"0"`
	RSIMax        float64  `yaml:"rsi_max" default:"100"`
	StochRSIMin   float64  `yaml:"stoch_rsi_min" default:"0"`
	StochRSIMax   float64  `yaml:"stoch_rsi_max" default:"100"`
	MinConfidence float64  `yaml:"min_confidence" default:"60"`
}

// Criteria converts the YAML layout into validated filter criteria.
func (f FiltersConfig) Criteria() (models.FilterCriteria, error) {
	c := models.FilterCriteria{
		Trends:        make([]models.TrendLabel, 0, len(f.Trend)),
		PCR:           models.Range{Min: f.PCRMin, Max: f.PCRMax},
		RSI:           models.Range{Min: f.RSIMin, Max: f.RSIMax},
		StochRSI:      models.Range{Min: f.StochRSIMin, Max: f.StochRSIMax},
		MinConfidence: f.MinConfidence,
	}
	for _, t := range f.Trend {
		l, ok := models.ParseTrendLabel(t)
		if !ok {
			return models.FilterCriteria{}, &models.ConfigError{Field: "scanner.filters.trend", Reason: fmt.Sprintf("unknown trend %q", t)}
		}
		c.Trends = append(c.Trends, l)
	}
	if err := c.Validate(); err != nil {
		return models.FilterCriteria{}, err
	}
	return c, nil
}

// ScanConfig builds the immutable per-scan configuration with filters applied.
func (s ScannerConfig) ScanConfig(filters models.FilterCriteria) models.ScanConfig {
	return models.ScanConfig{
		MaxWorkers:  s.MaxWorkers,
		Filters:     filters,
		OutputDir:   s.OutputDir,
		Symbols:     append([]string(nil), s.Symbols...),
		SymbolsFile: s.SymbolsFile,
	}
}

// envOverrides lists the environment variables that win over the YAML file.
// Each is read as SETUPSCAN_<NAME> first, then as the bare name.
// Fields carry no default tags so unset variables leave the config untouched.
type envOverrides struct {
	Environment   string   `envconfig:"ENVIRONMENT"`
	Port          int      `envconfig:"PORT"`
	LogLevel      string   `envconfig:"LOG_LEVEL"`
	FinnhubAPIKey string   `envconfig:"FINNHUB_API_KEY"`
	Symbols       []string `envconfig:"SYMBOLS"`
	OutputDir     string   `envconfig:"OUTPUT_DIR"`
	MaxWorkers    int      `envconfig:"MAX_WORKERS"`
	Archive       string   `envconfig:"ARCHIVE"`
	DatabaseURL   string   `envconfig:"DATABASE_URL"`
	RedisHost     string   `envconfig:"REDIS_HOST"`
	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC"`
}

var validate = validator.New()

// Default returns a configuration populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, then .env and process environment overrides.
// A missing YAML file is tolerated so the binary can run on defaults plus env.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	var env envOverrides
	if err := envconfig.Process("SETUPSCAN", &env); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	c.applyEnv(env)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(e envOverrides) {
	if e.Environment != "" {
		c.Environment = e.Environment
	}
	if e.Port != 0 {
		c.Server.Port = e.Port
	}
	if e.LogLevel != "" {
		c.Logger.Level = strings.ToLower(e.LogLevel)
	}
	if e.FinnhubAPIKey != "" {
		c.Finnhub.APIKey = e.FinnhubAPIKey
	}
	if len(e.Symbols) > 0 {
		c.Scanner.Symbols = trimAll(e.Symbols)
	}
	if e.OutputDir != "" {
		c.Scanner.OutputDir = e.OutputDir
	}
	if e.MaxWorkers != 0 {
		c.Scanner.MaxWorkers = e.MaxWorkers
	}
	if e.Archive != "" {
		c.Archive.Type = e.Archive
	}
	if e.DatabaseURL != "" {
		c.Postgres.URL = e.DatabaseURL
	}
	if e.RedisHost != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = e.RedisHost
	}
	if len(e.KafkaBrokers) > 0 {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = trimAll(e.KafkaBrokers)
	}
	if e.KafkaTopic != "" {
		c.Kafka.Topic = e.KafkaTopic
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &models.ConfigError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed %q rule", fe.Tag())}
		}
		return &models.ConfigError{Reason: err.Error()}
	}
	if _, err := c.Scanner.Filters.Criteria(); err != nil {
		return err
	}
	switch c.Archive.Type {
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return &models.ConfigError{Field: "clickhouse.host", Reason: "required when archive.type is clickhouse"}
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return &models.ConfigError{Field: "postgres.url", Reason: "required when archive.type is postgres"}
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return &models.ConfigError{Field: "kafka.brokers", Reason: "cannot be empty when kafka is enabled"}
	}
	if c.Logger.Collector.Enabled && !c.Kafka.Enabled {
		return &models.ConfigError{Field: "logger.collector.enabled", Reason: "requires kafka.enabled"}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
