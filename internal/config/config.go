package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Mesh/internal/domain"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Secret   string `mapstructure:"secret"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	MinCapacity     int    `mapstructure:"min_capacity"`
	MaxCapacity     int    `mapstructure:"max_capacity"`
	DefaultCapacity string `mapstructure:"default_capacity"`
	CodeAttempts    int    `mapstructure:"code_attempts"`

	RoomTTL     time.Duration `mapstructure:"room_ttl"`
	SweepPeriod time.Duration `mapstructure:"sweep_period"`

	CreateLimit    int           `mapstructure:"create_limit"`
	CreateInterval time.Duration `mapstructure:"create_interval"`
	JoinLimit      int           `mapstructure:"join_limit"`
	JoinInterval   time.Duration `mapstructure:"join_interval"`

	ICEURLs       []string `mapstructure:"ice_servers"`
	ICEUsername   string   `mapstructure:"ice_username"`
	ICECredential string   `mapstructure:"ice_credential"`

	// AllowedOrigins lists browser origins trusted with the session cookie.
	// "*" admits any origin but never with credentials.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("min_capacity", 2)
	v.SetDefault("max_capacity", 5)
	v.SetDefault("default_capacity", "2")
	v.SetDefault("code_attempts", 10)
	v.SetDefault("room_ttl", "24h")
	v.SetDefault("sweep_period", "10m")
	v.SetDefault("create_limit", 20)
	v.SetDefault("create_interval", "1m")
	v.SetDefault("join_limit", 10)
	v.SetDefault("join_interval", "10s")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("allowed_origins", []string{"*"})
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) over the
// built-in defaults. MESH_* environment variables override both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("mesh")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MinCapacity < 2 {
		return errors.New("min_capacity must be at least 2")
	}
	if c.MaxCapacity < c.MinCapacity {
		return errors.New("max_capacity must not be below min_capacity")
	}
	if _, err := c.Capacity(); err != nil {
		return fmt.Errorf("default_capacity: %w", err)
	}
	if c.PingPeriod >= c.PongWait {
		return errors.New("ping_period must be shorter than pong_wait")
	}
	return nil
}

// Capacity is the parsed default room capacity.
func (c *Config) Capacity() (domain.Capacity, error) {
	return domain.ParseCapacity(c.DefaultCapacity)
}

// AnyOrigin reports whether allowed_origins contains the "*" wildcard.
func (c *Config) AnyOrigin() bool {
	return slices.Contains(c.AllowedOrigins, "*")
}

// OriginAllowed reports whether a browser at origin may call the API and
// open a signaling socket.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ICEServers is the STUN/TURN list handed to browsers.
func (c *Config) ICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(c.ICEURLs))
	for _, raw := range c.ICEURLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		server := webrtc.ICEServer{URLs: []string{url}}
		if strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:") {
			server.Username = c.ICEUsername
			server.Credential = c.ICECredential
		}
		servers = append(servers, server)
	}
	return servers
}
