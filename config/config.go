package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	SDNLabel SDNLabelConfig `yaml:"sdnlabel"`
}

// SDNLabelConfig is the project configuration.
type SDNLabelConfig struct {
	Controller ControllerConfig `yaml:"controller"`
	Collection CollectionConfig `yaml:"collection"`
	Labeling   LabelingConfig   `yaml:"labeling"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Scenarios  []ScenarioConfig `yaml:"scenarios"`
	Output     OutputConfig     `yaml:"output"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ControllerConfig controls access to the SDN controller REST API.
type ControllerConfig struct {
	URL             string                `yaml:"url"`
	PollTimeout     time.Duration         `yaml:"poll_timeout"`
	Breaker         BreakerConfig         `yaml:"breaker"`
	WaitForSwitches WaitForSwitchesConfig `yaml:"wait_for_switches"`
}

// BreakerConfig controls the circuit breaker in front of snapshot fetches.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// WaitForSwitchesConfig controls the readiness wait before the first run.
type WaitForSwitchesConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// CollectionConfig controls the polling loop.
type CollectionConfig struct {
	Interval time.Duration `yaml:"interval"`
	Duration time.Duration `yaml:"duration"`
}

// LabelingConfig controls temporal labeling.
type LabelingConfig struct {
	HalfWidth        time.Duration `yaml:"half_width"`
	EventClockOffset time.Duration `yaml:"event_clock_offset"`
	Location         string        `yaml:"location"`
}

// AlertsConfig selects the alert source.
type AlertsConfig struct {
	Mode  string           `yaml:"mode"` // file|redis|nats|none
	File  FileOutputConfig `yaml:"file"`
	Redis RedisConfig      `yaml:"redis"`
	NATS  NATSConfig       `yaml:"nats"`
	Rules RulesConfig      `yaml:"rules"`
}

// RedisConfig controls the Redis alert queue.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// NATSConfig controls the NATS alert subscription.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RulesConfig controls Sigma alert classification rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ScenarioConfig describes one collection run.
type ScenarioConfig struct {
	Name       string        `yaml:"name"`
	Warmup     time.Duration `yaml:"warmup"`
	Duration   time.Duration `yaml:"duration"`
	AlertsFile string        `yaml:"alerts_file"`
}

// OutputConfig controls dataset artifacts.
type OutputConfig struct {
	Dir        string                 `yaml:"dir"`
	CSV        FileOutputConfig       `yaml:"csv"`
	Summary    FileOutputConfig       `yaml:"summary"`
	Alerts     FileOutputConfig       `yaml:"alerts"`
	RawDir     string                 `yaml:"raw_dir"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
	Webhook    HTTPOutputConfig       `yaml:"webhook"`
}

// ClickHouseOutputConfig controls the optional ClickHouse dataset sink.
type ClickHouseOutputConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Database string        `yaml:"database"`
	Table    string        `yaml:"table"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// FileOutputConfig config for a local file.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// APIConfig controls the status/metrics HTTP listener. Empty disables it.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
