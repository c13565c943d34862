package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgconfig "github.com/weiawesome/wes-io-live/viewer-client/pkg/config"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig `mapstructure:"api"`
	Chat      ChatConfig
	Playback  PlaybackConfig
	Media     MediaConfig
	Presence  PresenceConfig
	Session   SessionConfig
	Telemetry pubsub.Config
	Log       LogConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	Enabled bool
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string
	Timeout time.Duration
}

type ChatConfig struct {
	URL              string
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	MaxMessageLength int           `mapstructure:"max_message_length"`
	MaxFrameSize     int64         `mapstructure:"max_frame_size"`
}

type PlaybackConfig struct {
	VideoID            string        `mapstructure:"video_id"`
	CorrectionInterval time.Duration `mapstructure:"correction_interval"`
	DriftThreshold     float64       `mapstructure:"drift_threshold"`
	SeekTolerance      float64       `mapstructure:"seek_tolerance"`
	AutoplayAttempts   int           `mapstructure:"autoplay_attempts"`
	AutoplayRetryDelay time.Duration `mapstructure:"autoplay_retry_delay"`
}

type MediaConfig struct {
	AutoplayBlocked bool          `mapstructure:"autoplay_blocked"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
}

type PresenceConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type SessionConfig struct {
	ID          string
	Store       string // "memory", "redis"
	TTL         time.Duration
	GuestPrefix string `mapstructure:"guest_prefix"`
	Redis       RedisConfig
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.GetEnv("CONFIG_PATH", "./config"), "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8095)
	v.SetDefault("api.base_url", "http://localhost:8081")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("chat.url", "ws://localhost:8081/ws/websocket")
	v.SetDefault("chat.reconnect_delay", "5s")
	v.SetDefault("chat.write_wait", "10s")
	v.SetDefault("chat.max_message_length", 300)
	v.SetDefault("chat.max_frame_size", 65536)
	v.SetDefault("playback.video_id", "")
	v.SetDefault("playback.correction_interval", "10s")
	v.SetDefault("playback.drift_threshold", 5.0)
	v.SetDefault("playback.seek_tolerance", 10.0)
	v.SetDefault("playback.autoplay_attempts", 3)
	v.SetDefault("playback.autoplay_retry_delay", "500ms")
	v.SetDefault("media.autoplay_blocked", false)
	v.SetDefault("media.probe_timeout", "5s")
	v.SetDefault("presence.poll_interval", "3s")
	v.SetDefault("session.id", "")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.guest_prefix", "Gost_")
	v.SetDefault("session.redis.address", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("telemetry.driver", "none")
	v.SetDefault("telemetry.redis.address", "localhost:6379")
	v.SetDefault("telemetry.redis.pool_size", 4)
	v.SetDefault("telemetry.kafka.brokers", "localhost:9092")
	v.SetDefault("telemetry.kafka.partitions", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("api.base_url", "API_BASE_URL")
	v.BindEnv("api.token", "API_TOKEN")
	v.BindEnv("chat.url", "CHAT_URL")
	v.BindEnv("playback.video_id", "VIDEO_ID")
	v.BindEnv("session.id", "SESSION_ID")
	v.BindEnv("session.store", "SESSION_STORE")
	v.BindEnv("session.redis.address", "REDIS_ADDRESS")
	v.BindEnv("session.redis.password", "REDIS_PASSWORD")
	v.BindEnv("telemetry.driver", "TELEMETRY_DRIVER")
	v.BindEnv("telemetry.redis.address", "TELEMETRY_REDIS_ADDRESS")
	v.BindEnv("telemetry.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.API.Timeout = pkgconfig.Duration(v, "api.timeout", 10*time.Second)
	cfg.Chat.ReconnectDelay = pkgconfig.Duration(v, "chat.reconnect_delay", 5*time.Second)
	cfg.Chat.WriteWait = pkgconfig.Duration(v, "chat.write_wait", 10*time.Second)
	cfg.Playback.CorrectionInterval = pkgconfig.Duration(v, "playback.correction_interval", 10*time.Second)
	cfg.Playback.AutoplayRetryDelay = pkgconfig.Duration(v, "playback.autoplay_retry_delay", 500*time.Millisecond)
	cfg.Media.ProbeTimeout = pkgconfig.Duration(v, "media.probe_timeout", 5*time.Second)
	cfg.Presence.PollInterval = pkgconfig.Duration(v, "presence.poll_interval", 3*time.Second)
	cfg.Session.TTL = pkgconfig.Duration(v, "session.ttl", 24*time.Hour)

	return &cfg, nil
}

var ErrMissingVideoID = errors.New("playback.video_id is required (env VIDEO_ID)")

// Validate checks settings that have no usable default. The video id travels
// as a JSON number in chat frames, so it must parse as an integer.
func (c *Config) Validate() error {
	if c.Playback.VideoID == "" {
		return ErrMissingVideoID
	}
	if _, err := strconv.ParseInt(c.Playback.VideoID, 10, 64); err != nil {
		return fmt.Errorf("playback.video_id %q is not a numeric id: %w", c.Playback.VideoID, err)
	}
	return nil
}
