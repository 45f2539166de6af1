package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type TLS struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// Channel describes one configured channel. An entry without a parent names
// the root.
type Channel struct {
	Name        string `mapstructure:"name"`
	Parent      string `mapstructure:"parent"`
	Description string `mapstructure:"description"`
	Password    string `mapstructure:"password"`
	Position    int32  `mapstructure:"position"`
	NoEnter     bool   `mapstructure:"noenter"`
	Silent      bool   `mapstructure:"silent"`
}

type ChannelLink struct {
	Source      string `mapstructure:"source"`
	Destination string `mapstructure:"destination"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`

	Bind     string `mapstructure:"bind"`
	Port     int    `mapstructure:"port"`
	HTTPPort int    `mapstructure:"http_port"`
	TLS      TLS    `mapstructure:"tls"`

	ServerPassword   string `mapstructure:"server_password"`
	AdminPassword    string `mapstructure:"admin_password"`
	MaxClients       int    `mapstructure:"max_clients"`
	MaxBandwidth     int    `mapstructure:"max_bandwidth"`
	WelcomeText      string `mapstructure:"welcome_text"`
	DefaultChannel   string `mapstructure:"default_channel"`
	AllowTextMessage bool   `mapstructure:"allow_textmessage"`
	EnableBan        bool   `mapstructure:"enable_ban"`
	// BanLength of zero bans forever.
	BanLength      time.Duration `mapstructure:"ban_length"`
	OpusThreshold  int           `mapstructure:"opus_threshold"`
	MaxMessageSize int           `mapstructure:"max_message_size"`

	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	JanitorInterval   time.Duration `mapstructure:"janitor_interval"`

	// ConnectRate caps new control connections per address within ConnectWindow.
	ConnectRate   int           `mapstructure:"connect_rate"`
	ConnectWindow time.Duration `mapstructure:"connect_window"`

	BanDBPath string `mapstructure:"ban_db_path"`

	Channels     []Channel     `mapstructure:"channels"`
	ChannelLinks []ChannelLink `mapstructure:"channel_links"`
}

var ErrInvalid = errors.New("invalid config")

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		panic(fmt.Sprintf("config: bad defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("bind", "0.0.0.0")
	v.SetDefault("port", 64738)
	v.SetDefault("http_port", 8080)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("max_clients", 32)
	v.SetDefault("max_bandwidth", 48000)
	v.SetDefault("allow_textmessage", true)
	v.SetDefault("enable_ban", false)
	v.SetDefault("ban_length", "0s")
	v.SetDefault("opus_threshold", 100)
	v.SetDefault("max_message_size", 8192)
	v.SetDefault("inactivity_timeout", "60s")
	v.SetDefault("janitor_interval", "1s")
	v.SetDefault("connect_rate", 10)
	v.SetDefault("connect_window", "10s")
}

func decodeHook(dc *mapstructure.DecoderConfig) {
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("VOIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("mode: %s | voice port: %d | http port: %d | max clients: %d\n", cfg.Mode, cfg.Port, cfg.HTTPPort, cfg.MaxClients)
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	case c.MaxClients <= 0:
		return fmt.Errorf("%w: max_clients must be positive", ErrInvalid)
	case c.MaxBandwidth <= 0:
		return fmt.Errorf("%w: max_bandwidth must be positive", ErrInvalid)
	case c.MaxMessageSize <= 6:
		return fmt.Errorf("%w: max_message_size too small", ErrInvalid)
	case c.JanitorInterval <= 0:
		return fmt.Errorf("%w: janitor_interval must be positive", ErrInvalid)
	}
	return nil
}

// BandwidthPerTick is max_bandwidth converted from bits to bytes per second.
func (c *Config) BandwidthPerTick() int { return c.MaxBandwidth / 8 }
