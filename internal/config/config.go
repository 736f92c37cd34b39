package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Publisher PublisherConfig `yaml:"publisher"`
	Worker    WorkerConfig    `yaml:"worker"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	Topic           string   `yaml:"topic"`
	DeadLetterTopic string   `yaml:"dead_letter_topic"`
	Group           string   `yaml:"group"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type PublisherConfig struct {
	PollIntervalSec int `yaml:"poll_interval_sec"`
	BatchSize       int `yaml:"batch_size"`
}

type WorkerConfig struct {
	ProcessingDelaySec int `yaml:"processing_delay_sec"`
}

type NotifyConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	// worker containers get the API address via env
	if api := os.Getenv("API_URL"); api != "" {
		cfg.Notify.BaseURL = api
	}
	if cfg.Publisher.PollIntervalSec <= 0 {
		cfg.Publisher.PollIntervalSec = 5
	}
	if cfg.Publisher.BatchSize <= 0 {
		cfg.Publisher.BatchSize = 100
	}
	if cfg.Worker.ProcessingDelaySec <= 0 {
		cfg.Worker.ProcessingDelaySec = 5
	}
	return &cfg, nil
}
