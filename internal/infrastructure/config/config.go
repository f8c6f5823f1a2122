package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backend names accepted in cache.backend.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config is the root configuration structure.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Printer   PrinterConfig   `yaml:"printer"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Cache     CacheConfig     `yaml:"cache"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	HMS       HMSConfig       `yaml:"hms"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PrinterConfig identifies the device this process talks to.
type PrinterConfig struct {
	Host string `yaml:"host"`

	// Serial is the device serial number; it forms the MQTT topic names.
	Serial string `yaml:"serial"`

	// AccessToken is the LAN access code shown on the printer's screen.
	// It is both the MQTT password and the FTPS password.
	AccessToken string `yaml:"access_token"`

	MQTTPort int `yaml:"mqtt_port"`
	FTPPort  int `yaml:"ftp_port"`
}

// MQTTConfig contains telemetry connection settings.
type MQTTConfig struct {
	// ClientID is optional; a random one is generated when empty.
	ClientID  string              `yaml:"client_id"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keep_alive"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	Interval    int `yaml:"interval"`
	MaxInterval int `yaml:"max_interval"`
}

// TransferConfig contains side-channel file transfer settings.
type TransferConfig struct {
	// ScratchDir holds downloaded archives and thumbnails. It is purged on start.
	ScratchDir string `yaml:"scratch_dir"`

	// PollInterval is how often a closed connection is re-established.
	PollInterval time.Duration `yaml:"poll_interval"`

	// StartGrace is the wait between print:start and the first archive fetch.
	StartGrace time.Duration `yaml:"start_grace"`

	// RetryDelay is the constant delay between archive fetch attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// ThumbnailInterval bounds how often the camera thumbnail is refreshed.
	ThumbnailInterval time.Duration `yaml:"thumbnail_interval"`

	// Timeout bounds a single dial or command on the side channel.
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig selects and configures the tracker's state cache.
type CacheConfig struct {
	Backend string            `yaml:"backend"`
	Memory  MemoryCacheConfig `yaml:"memory"`
	SQLite  SQLiteCacheConfig `yaml:"sqlite"`
	Redis   RedisCacheConfig  `yaml:"redis"`
}

// MemoryCacheConfig contains in-process cache settings.
type MemoryCacheConfig struct {
	Size int `yaml:"size"`
}

// SQLiteCacheConfig contains SQLite cache settings.
type SQLiteCacheConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// RedisCacheConfig contains Redis cache settings.
type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// InfluxDBConfig contains status history settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket event relay settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// HMSConfig contains health-management description lookup settings.
type HMSConfig struct {
	// WikiBaseURL is where HMS_XXXX pages are looked up.
	WikiBaseURL string `yaml:"wiki_base_url"`

	// MaxAttempts caps lookups per code, successful or not.
	MaxAttempts int `yaml:"max_attempts"`

	// CacheSize bounds the number of remembered codes.
	CacheSize int `yaml:"cache_size"`

	// Timeout bounds a single wiki request.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern BAMBU_SECTION_KEY,
// for example BAMBU_PRINTER_HOST or BAMBU_API_PORT.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the printer's stock ports and timings.
func defaultConfig() *Config {
	return &Config{
		Printer: PrinterConfig{
			MQTTPort: 8883,
			FTPPort:  990,
		},
		MQTT: MQTTConfig{
			QoS:       0,
			KeepAlive: 60,
			Reconnect: MQTTReconnectConfig{
				Interval:    1,
				MaxInterval: 10,
			},
		},
		Transfer: TransferConfig{
			ScratchDir:        ".temp-ftp",
			PollInterval:      30 * time.Second,
			StartGrace:        5 * time.Second,
			RetryDelay:        5 * time.Second,
			ThumbnailInterval: time.Second,
			Timeout:           30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Memory:  MemoryCacheConfig{Size: 128},
			SQLite: SQLiteCacheConfig{
				Path:        "./data/bambu.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			Redis: RedisCacheConfig{
				Addr:   "localhost:6379",
				Prefix: "bambu:",
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		HMS: HMSConfig{
			WikiBaseURL: "https://wiki.bambulab.com/en/x1/troubleshooting/hmscode/",
			MaxAttempts: 3,
			CacheSize:   256,
			Timeout:     10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies BAMBU_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BAMBU_PRINTER_HOST"); v != "" {
		cfg.Printer.Host = v
	}
	if v := os.Getenv("BAMBU_PRINTER_SERIAL"); v != "" {
		cfg.Printer.Serial = v
	}
	// The access token should come from the environment rather than the file.
	if v := os.Getenv("BAMBU_PRINTER_TOKEN"); v != "" {
		cfg.Printer.AccessToken = v
	}

	if v := os.Getenv("BAMBU_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("BAMBU_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}

	if v := os.Getenv("BAMBU_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("BAMBU_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("BAMBU_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration and reports every problem at once.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Printer.Host == "" {
		errs = append(errs, "printer.host is required")
	}
	if c.Printer.Serial == "" {
		errs = append(errs, "printer.serial is required")
	}
	if c.Printer.AccessToken == "" {
		errs = append(errs, "printer.access_token is required (set BAMBU_PRINTER_TOKEN environment variable)")
	}
	if !validPort(c.Printer.MQTTPort) {
		errs = append(errs, "printer.mqtt_port must be between 1 and 65535")
	}
	if !validPort(c.Printer.FTPPort) {
		errs = append(errs, "printer.ftp_port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Transfer.ScratchDir == "" {
		errs = append(errs, "transfer.scratch_dir is required")
	}
	if c.Transfer.PollInterval <= 0 || c.Transfer.RetryDelay <= 0 {
		errs = append(errs, "transfer.poll_interval and transfer.retry_delay must be positive")
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheSQLite:
		if c.Cache.SQLite.Path == "" {
			errs = append(errs, "cache.sqlite.path is required for the sqlite backend")
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, "cache.redis.addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be memory, sqlite, or redis", c.Cache.Backend))
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.API.Enabled && !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
