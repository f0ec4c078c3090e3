package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	LateJoinExtend = "extend"
	LateJoinReject = "reject"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Rooms     RoomsConfig     `yaml:"rooms"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Signaling SignalingConfig `yaml:"signaling"`
	Auth      AuthConfig      `yaml:"auth"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
	NATS      NATSConfig      `yaml:"nats"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"5s"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DATABASE_DRIVER" env-default:"memory"`
	DSN             string        `yaml:"dsn" env:"DATABASE_DSN"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

type RoomsConfig struct {
	DefaultDuration time.Duration `yaml:"default_duration" env-default:"15m"`
	DefaultCapacity int           `yaml:"default_capacity" env-default:"10"`
	// LateJoinPolicy is "extend" or "reject". With "extend" a join that
	// arrives after scheduled_end pushes it forward by LateJoinGrace.
	LateJoinPolicy        string        `yaml:"late_join_policy" env-default:"extend"`
	LateJoinGrace         time.Duration `yaml:"late_join_grace" env-default:"120m"`
	MaxLateJoinExtensions int           `yaml:"max_late_join_extensions" env-default:"0"`
	StoreRetries          uint64        `yaml:"store_retries" env-default:"3"`
	// StoreRetryBudget bounds one retried store write, attempts included.
	StoreRetryBudget time.Duration `yaml:"store_retry_budget" env-default:"2s"`
}

type SweeperConfig struct {
	Interval    time.Duration `yaml:"interval" env-default:"1m"`
	Concurrency int           `yaml:"concurrency" env-default:"4"`
}

type SignalingConfig struct {
	SendTimeout    time.Duration `yaml:"send_timeout" env-default:"2s"`
	SendBuffer     int           `yaml:"send_buffer" env-default:"64"`
	WriteWait      time.Duration `yaml:"write_wait" env-default:"10s"`
	PongWait       time.Duration `yaml:"pong_wait" env-default:"60s"`
	MaxMessageSize int64         `yaml:"max_message_size" env-default:"65536"`
	RegistryShards int           `yaml:"registry_shards" env-default:"32"`
	// ReconnectGrace keeps a dropped participant DISCONNECTED instead of LEFT
	// for this long. Zero leaves immediately on disconnect.
	ReconnectGrace time.Duration `yaml:"reconnect_grace" env-default:"0s"`
}

type AuthConfig struct {
	Required bool   `yaml:"required" env:"AUTH_REQUIRED" env-default:"false"`
	Secret   string `yaml:"secret" env:"AUTH_SECRET"`
	Issuer   string `yaml:"issuer" env:"AUTH_ISSUER"`
}

type WebRTCConfig struct {
	STUNServers    []string `yaml:"stun_servers"`
	TURNServers    []string `yaml:"turn_servers"`
	TURNUsername   string   `yaml:"turn_username" env:"TURN_USERNAME"`
	TURNCredential string   `yaml:"turn_credential" env:"TURN_CREDENTIAL"`
}

type NATSConfig struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env-default:"meetings"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Rooms.DefaultDuration <= 0 {
		c.Rooms.DefaultDuration = 15 * time.Minute
	}
	if c.Rooms.DefaultCapacity <= 0 {
		c.Rooms.DefaultCapacity = 10
	}
	if c.Rooms.LateJoinPolicy != LateJoinReject {
		c.Rooms.LateJoinPolicy = LateJoinExtend
	}
	if c.Rooms.StoreRetryBudget <= 0 {
		c.Rooms.StoreRetryBudget = 2 * time.Second
	}
	if c.Sweeper.Interval <= 0 {
		c.Sweeper.Interval = time.Minute
	}
	if c.Sweeper.Concurrency <= 0 {
		c.Sweeper.Concurrency = 1
	}
	if c.Signaling.SendBuffer <= 0 {
		c.Signaling.SendBuffer = 64
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
}
