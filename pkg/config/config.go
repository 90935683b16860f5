package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
		// CIDRs allowed to set X-Forwarded-For. Empty trusts only the socket peer.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type     string `yaml:"type" default:"memory"`
		SeedDemo bool   `yaml:"seed_demo"`
	} `yaml:"backend"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"binpulse"`
	} `yaml:"redis"`
	Simulation Simulation `yaml:"simulation"`
	History    struct {
		Sink string `yaml:"sink" default:"none"`
	} `yaml:"history"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"binpulse.simulation.events"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"binpulse-history"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"binpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	MQTT struct {
		Enabled      bool          `yaml:"enabled"`
		Broker       string        `yaml:"broker" default:"tcp://localhost:1883"`
		ClientID     string        `yaml:"client_id" default:"binpulse-simulator"`
		Username     string        `yaml:"username"`
		Password     string        `yaml:"password"`
		TopicPattern string        `yaml:"topic_pattern" default:"bins/{bin_id}/level"`
		QoS          int           `yaml:"qos" default:"1"`
		Retained     bool          `yaml:"retained" default:"true"`
		MaxRate      int           `yaml:"max_rate" default:"5"`
		BufferSize   int           `yaml:"buffer_size" default:"500"`
		PublishWait  time.Duration `yaml:"publish_wait" default:"5s"`
	} `yaml:"mqtt"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	} `yaml:"queue"`
	Cache struct {
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"5s"`
	} `yaml:"cache"`
	RateLimit struct {
		TickBurst  float64 `yaml:"tick_burst" default:"5"`
		TickRefill float64 `yaml:"tick_refill" default:"1"`
	} `yaml:"rate_limit"`
}

// Simulation holds the fill-level simulator settings.
type Simulation struct {
	TickInterval    time.Duration      `yaml:"tick_interval" default:"15s"`
	IntervalSeconds float64            `yaml:"interval_seconds" default:"30"`
	Timezone        string             `yaml:"timezone" default:"Local"`
	Seed            int64              `yaml:"seed"`
	Workers         int                `yaml:"workers" default:"4"`
	AutoStart       bool               `yaml:"auto_start"`
	Epsilon         float64            `yaml:"epsilon" default:"0.01"`
	AutoEmpty       []AutoEmptyRule    `yaml:"auto_empty"`
	Patterns        map[string]Pattern `yaml:"patterns"`
}

// AutoEmptyRule is one probabilistic collection threshold.
type AutoEmptyRule struct {
	MinLevel    float64 `yaml:"min_level"`
	MinMinutes  float64 `yaml:"min_minutes"`
	Probability float64 `yaml:"probability"`
}

// Pattern overrides the built-in fill pattern for one category.
type Pattern struct {
	BaseRate          float64 `yaml:"base_rate"`
	PeakHours         []int   `yaml:"peak_hours"`
	PeakMultiplier    float64 `yaml:"peak_multiplier"`
	WeekendMultiplier float64 `yaml:"weekend_multiplier"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file and then applies
// environment variable overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR port: %w", err)
			}
			c.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
		c.MQTT.Enabled = true
	}
	if v := os.Getenv("SIM_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIM_TICK_INTERVAL: %w", err)
		}
		c.Simulation.TickInterval = d
	}
	return nil
}

// RedisRequired reports whether any enabled component needs Redis.
func (c *Config) RedisRequired() bool {
	return c.Backend.Type == "redis" || c.Queue.Enabled
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type != "memory" && c.Backend.Type != "redis" {
		return fmt.Errorf("backend.type must be 'memory' or 'redis', got '%s'", c.Backend.Type)
	}
	if c.Queue.Enabled && c.Backend.Type != "redis" {
		return fmt.Errorf("queue.enabled requires backend.type 'redis'")
	}
	switch c.History.Sink {
	case "none":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("history.sink 'kafka' requires kafka.brokers")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("history.sink 'clickhouse' requires clickhouse.host")
		}
	default:
		return fmt.Errorf("history.sink must be 'none', 'kafka' or 'clickhouse', got '%s'", c.History.Sink)
	}
	if c.Kafka.Consumer.Enabled && (len(c.Kafka.Brokers) == 0 || c.ClickHouse.Host == "") {
		return fmt.Errorf("kafka.consumer requires kafka.brokers and clickhouse.host")
	}
	if c.Kafka.LogsTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.logs_topic requires kafka.brokers")
	}
	s := c.Simulation
	if s.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if s.IntervalSeconds <= 0 {
		return fmt.Errorf("simulation.interval_seconds must be positive")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("simulation.workers must be positive")
	}
	if s.Epsilon < 0 {
		return fmt.Errorf("simulation.epsilon cannot be negative")
	}
	for i, r := range s.AutoEmpty {
		if r.Probability < 0 || r.Probability > 1 {
			return fmt.Errorf("simulation.auto_empty[%d].probability must be within [0,1]", i)
		}
		if r.MinLevel < 0 || r.MinLevel > 100 {
			return fmt.Errorf("simulation.auto_empty[%d].min_level must be within [0,100]", i)
		}
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
