package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. FINWATCH_SERVER_PORT.
// Leaf fields use split_words so a bare PATH or USER in the environment is
// never picked up as a fallback.
const EnvPrefix = "FINWATCH"

type Config struct {
	Environment string           `yaml:"environment" split_words:"true"`
	Server      ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Metrics     MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
	Logging     LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Monitor     MonitorConfig    `yaml:"monitor" envconfig:"MONITOR"`
	Analysis    AnalysisConfig   `yaml:"analysis" envconfig:"ANALYSIS"`
	Source      SourceConfig     `yaml:"source" envconfig:"SOURCE"`
	Kafka       KafkaConfig      `yaml:"kafka" envconfig:"KAFKA"`
	Redis       RedisConfig      `yaml:"redis" envconfig:"REDIS"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse" envconfig:"CLICKHOUSE"`
	Export      ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	WebSocket   WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	AllowedOrigins  []string      `yaml:"allowed_origins" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Path    string `yaml:"path" split_words:"true"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
	Output string `yaml:"output" split_words:"true"`
}

// MonitorConfig drives the polling and consumer loops.
type MonitorConfig struct {
	PollTick        time.Duration `yaml:"poll_tick" split_words:"true"`
	ConsumerTick    time.Duration `yaml:"consumer_tick" split_words:"true"`
	SweepInterval   time.Duration `yaml:"sweep_interval" split_words:"true"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" split_words:"true"`
	DefaultSymbol   string        `yaml:"default_symbol" split_words:"true"`
	DefaultPeriod   string        `yaml:"default_period" split_words:"true"`
	DefaultInterval string        `yaml:"default_interval" split_words:"true"`
	StartBurst      float64       `yaml:"start_burst" split_words:"true"`
	StartRefill     float64       `yaml:"start_refill_per_sec" split_words:"true"`
}

type AnalysisConfig struct {
	MAWindow     int  `yaml:"ma_window" split_words:"true"`
	MedianWindow int  `yaml:"median_window" split_words:"true"`
	Extrema      bool `yaml:"extrema" split_words:"true"`
}

// SourceConfig selects the price source: yahoo, finnhub or sim.
type SourceConfig struct {
	Type    string        `yaml:"type" split_words:"true"`
	BaseURL string        `yaml:"base_url" split_words:"true"`
	APIKey  string        `yaml:"api_key" split_words:"true"`
	Timeout time.Duration `yaml:"timeout" split_words:"true"`
	Sim     struct {
		StartPrice float64 `yaml:"start_price" split_words:"true"`
		Volatility float64 `yaml:"volatility" split_words:"true"`
		Seed       int64   `yaml:"seed" split_words:"true"`
	} `yaml:"sim" envconfig:"SIM"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled" split_words:"true"`
	Brokers      []string `yaml:"brokers" split_words:"true"`
	ResultsTopic string   `yaml:"results_topic" split_words:"true"`
	RequiredAcks int      `yaml:"required_acks" split_words:"true"`
	Compression  string   `yaml:"compression" split_words:"true"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" split_words:"true"`
		Linger       time.Duration `yaml:"linger" split_words:"true"`
		BatchBytes   int           `yaml:"batch_bytes" split_words:"true"`
		BatchSize    int           `yaml:"batch_size" split_words:"true"`
		WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
		ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
		Async        bool          `yaml:"async" split_words:"true"`
	} `yaml:"producer" envconfig:"PRODUCER"`
	Control struct {
		Enabled    bool          `yaml:"enabled" split_words:"true"`
		Topic      string        `yaml:"topic" split_words:"true"`
		GroupID    string        `yaml:"group_id" split_words:"true"`
		Workers    int           `yaml:"workers" split_words:"true"`
		RetryMax   int           `yaml:"retry_max" split_words:"true"`
		BackoffMin time.Duration `yaml:"backoff_min" split_words:"true"`
		BackoffMax time.Duration `yaml:"backoff_max" split_words:"true"`
		MinBytes   int           `yaml:"min_bytes" split_words:"true"`
		MaxBytes   int           `yaml:"max_bytes" split_words:"true"`
	} `yaml:"control" envconfig:"CONTROL"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" split_words:"true"`
	Addr     string        `yaml:"addr" split_words:"true"`
	Password string        `yaml:"password" split_words:"true"`
	DB       int           `yaml:"db" split_words:"true"`
	TTL      time.Duration `yaml:"ttl" split_words:"true"`
	PoolSize int           `yaml:"pool_size" split_words:"true"`
	Timeout  time.Duration `yaml:"timeout" split_words:"true"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled" split_words:"true"`
	Host             string        `yaml:"host" split_words:"true"`
	Port             int           `yaml:"port" split_words:"true"`
	Database         string        `yaml:"database" split_words:"true"`
	Table            string        `yaml:"table" split_words:"true"`
	User             string        `yaml:"user" split_words:"true"`
	Password         string        `yaml:"password" split_words:"true"`
	UseHTTP          bool          `yaml:"use_http" split_words:"true"`
	AsyncInsert      bool          `yaml:"async_insert" split_words:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert" split_words:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" split_words:"true"`
	ReadTimeout      time.Duration `yaml:"read_timeout" split_words:"true"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" split_words:"true"`
}

type ExportConfig struct {
	Dir string `yaml:"dir" split_words:"true"`
}

type WebSocketConfig struct {
	WriteTimeout      time.Duration `yaml:"write_timeout" split_words:"true"`
	PingPeriod        time.Duration `yaml:"ping_period" split_words:"true"`
	CloseOnLastDetach bool          `yaml:"close_on_last_detach" split_words:"true"`
	RecentNotices     int           `yaml:"recent_notices" split_words:"true"`
}

// Default returns the configuration used when a key is absent from both the
// file and the environment.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"

	c.Monitor.PollTick = 15 * time.Second
	c.Monitor.ConsumerTick = 500 * time.Millisecond
	c.Monitor.SweepInterval = time.Second
	c.Monitor.DefaultSymbol = "MSFT"
	c.Monitor.DefaultPeriod = "1d"
	c.Monitor.DefaultInterval = "1d"
	c.Monitor.StartBurst = 5
	c.Monitor.StartRefill = 1

	c.Analysis.MAWindow = 3
	c.Analysis.MedianWindow = 3
	c.Analysis.Extrema = true

	c.Source.Type = "yahoo"
	c.Source.BaseURL = "https://query1.finance.yahoo.com"
	c.Source.Timeout = 10 * time.Second
	c.Source.Sim.StartPrice = 100
	c.Source.Sim.Volatility = 0.01

	c.Kafka.ResultsTopic = "finwatch.results"
	c.Kafka.RequiredAcks = 1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 50 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.BatchBytes = 1 << 20
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.Kafka.Control.Topic = "finwatch.control"
	c.Kafka.Control.GroupID = "finwatch-control"
	c.Kafka.Control.Workers = 1
	c.Kafka.Control.RetryMax = 3
	c.Kafka.Control.BackoffMin = 100 * time.Millisecond
	c.Kafka.Control.BackoffMax = 2 * time.Second
	c.Kafka.Control.MinBytes = 1
	c.Kafka.Control.MaxBytes = 1 << 20

	c.Redis.Addr = "localhost:6379"
	c.Redis.TTL = 10 * time.Minute
	c.Redis.PoolSize = 10
	c.Redis.Timeout = 3 * time.Second

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "default"
	c.ClickHouse.Table = "analysis_results"
	c.ClickHouse.User = "default"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 30 * time.Second

	c.Export.Dir = "output"

	c.WebSocket.WriteTimeout = 5 * time.Second
	c.WebSocket.PingPeriod = 30 * time.Second
	c.WebSocket.RecentNotices = 50
	return c
}

// Load reads and parses a YAML configuration file over the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
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

// LoadWithEnv loads config from YAML, then a local .env file if present, and
// overrides with FINWATCH_* environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	switch c.Source.Type {
	case "yahoo", "sim":
	case "finnhub":
		if c.Source.APIKey == "" {
			return fmt.Errorf("source.api_key is required for finnhub")
		}
	default:
		return fmt.Errorf("source.type must be 'yahoo', 'finnhub' or 'sim', got '%s'", c.Source.Type)
	}
	if c.Monitor.PollTick <= 0 {
		return fmt.Errorf("monitor.poll_tick must be positive")
	}
	if c.Monitor.ConsumerTick <= 0 {
		return fmt.Errorf("monitor.consumer_tick must be positive")
	}
	if c.Monitor.SweepInterval <= 0 {
		return fmt.Errorf("monitor.sweep_interval must be positive")
	}
	if c.Monitor.FetchTimeout < 0 {
		return fmt.Errorf("monitor.fetch_timeout cannot be negative")
	}
	if c.Analysis.MAWindow <= 0 {
		return fmt.Errorf("analysis.ma_window must be positive, got %d", c.Analysis.MAWindow)
	}
	if c.Analysis.MedianWindow <= 0 || c.Analysis.MedianWindow%2 == 0 {
		return fmt.Errorf("analysis.median_window must be odd and positive, got %d", c.Analysis.MedianWindow)
	}
	if c.Kafka.Enabled || c.Kafka.Control.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
	}
	if c.Kafka.Enabled && c.Kafka.ResultsTopic == "" {
		return fmt.Errorf("kafka.results_topic is required")
	}
	if c.Kafka.Control.Enabled && (c.Kafka.Control.Topic == "" || c.Kafka.Control.GroupID == "") {
		return fmt.Errorf("kafka.control.topic and kafka.control.group_id are required")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Table == "" {
		return fmt.Errorf("clickhouse.table is required")
	}
	return nil
}
