package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the settings for the relay endpoint itself.
type ServerConfig struct {
	ListenAddr        string `yaml:"listen_addr"`
	ServerName        string `yaml:"server_name"`
	Greeting          string `yaml:"greeting"`
	KeepaliveInterval string `yaml:"keepalive_interval"`
	ReadTimeout       string `yaml:"read_timeout"`
	LoginAckDelay     string `yaml:"login_ack_delay"`
	DrainTimeout      string `yaml:"drain_timeout"`
}

// SinkConfig holds the settings for the append-only packet stream.
type SinkConfig struct {
	LogFilePath    string `yaml:"log_file_path"`
	RecentCapacity int    `yaml:"recent_capacity"`
	EchoToConsole  bool   `yaml:"echo_to_console"`
}

// StreamConfig holds the NATS settings for live stream fan-out.
type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection settings for the archive database.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ArchiverConfig holds the settings for archiving stream entries.
type ArchiverConfig struct {
	Enabled       bool             `yaml:"enabled"`
	FlushInterval string           `yaml:"flush_interval"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the settings for the HTTP query surface.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ForwarderConfig holds the settings for the real-time packet forwarder.
type ForwarderConfig struct {
	DownstreamAddr string   `yaml:"downstream_addr"`
	DedupWindow    string   `yaml:"dedup_window"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// AnalyzerConfig holds the defaults for the correlation analyzer.
type AnalyzerConfig struct {
	DefaultLookback string `yaml:"default_lookback"`
	MatchWindow     string `yaml:"match_window"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sink      SinkConfig      `yaml:"sink"`
	Stream    StreamConfig    `yaml:"stream"`
	Archiver  ArchiverConfig  `yaml:"archiver"`
	API       APIConfig       `yaml:"api"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
