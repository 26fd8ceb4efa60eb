package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	Gateway    GatewayConfig    `envPrefix:"GATEWAY_"`
	Transcribe TranscribeConfig `envPrefix:"TRANSCRIBE_"`
	Socket     SocketConfig     `envPrefix:"SOCKET_"`
	Kafka      KafkaConfig      `envPrefix:"KAFKA_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:"0.0.0.0:8080"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017"`
	Database string   `env:"DATABASE" envDefault:"chat_console"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Direct   bool     `env:"DIRECT" envDefault:"true"`
}

// GatewayConfig points at the messaging gateway REST API.
type GatewayConfig struct {
	BaseURL       string        `env:"BASE_URL,required"`
	Token         string        `env:"TOKEN"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`
	PageLimit     int           `env:"PAGE_LIMIT" envDefault:"50"`
	MediaLimit    int           `env:"MEDIA_LIMIT" envDefault:"100"`
	FanoutWorkers int           `env:"FANOUT_WORKERS" envDefault:"8"`
}

// TranscribeConfig points at the document-analysis pipeline.
type TranscribeConfig struct {
	BaseURL      string        `env:"BASE_URL,required"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	MaxPolls     uint          `env:"MAX_POLLS" envDefault:"10"`
}

// SocketConfig points at the gateway's event socket.
type SocketConfig struct {
	URL     string        `env:"URL,required"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"gateway-events"`
	GroupID string   `env:"GROUP_ID" envDefault:"chat-console"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
