package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// deckSize is the number of cards in a standard deck. One card goes to the
// discard pile after the deal.
const deckSize = 108

// Config holds all server configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Game       GameConfig       `mapstructure:"game"`
	Validation ValidationConfig `mapstructure:"validation"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	WebSocket   WebSocketConfig `mapstructure:"websocket"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	MaxSessions int             `mapstructure:"max_sessions"`
	LeasePeriod time.Duration   `mapstructure:"lease_period"`
}

// WebSocketConfig configures the HTTP listener and the /ws endpoint.
type WebSocketConfig struct {
	Address        string        `mapstructure:"address"`
	Path           string        `mapstructure:"path"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the lobby gRPC listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the table rules and room behaviour.
type GameConfig struct {
	HandSize            int    `mapstructure:"hand_size"`
	MinPlayers          int    `mapstructure:"min_players"`
	MaxPlayers          int    `mapstructure:"max_players"`
	WildsAlwaysPlayable bool   `mapstructure:"wilds_always_playable"`
	MatchActionSymbols  bool   `mapstructure:"match_action_symbols"`
	ReportIllegalPlays  bool   `mapstructure:"report_illegal_plays"`
	ReplayDir           string `mapstructure:"replay_dir"`
	InboxSize           int    `mapstructure:"inbox_size"`
	// TargetScore ends a room's match once a player's points reach it.
	// Zero plays single rounds with no running score.
	TargetScore int `mapstructure:"target_score"`
}

// ValidationConfig holds account validation rules
type ValidationConfig struct {
	MinUsernameLength int `mapstructure:"min_username_length"`
	MaxUsernameLength int `mapstructure:"max_username_length"`
	MinPasswordLength int `mapstructure:"min_password_length"`
	BcryptCost        int `mapstructure:"bcrypt_cost"`
}

// Load reads configuration from path, overlays UNO_* environment variables
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UNO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_timeout", 60*time.Second)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.ping_interval", 54*time.Second)
	v.SetDefault("server.websocket.max_message_size", 4096)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.max_sessions", 1000)
	v.SetDefault("server.lease_period", 5*time.Minute)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.hand_size", 7)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 10)
	v.SetDefault("game.wilds_always_playable", false)
	v.SetDefault("game.match_action_symbols", false)
	v.SetDefault("game.report_illegal_plays", false)
	v.SetDefault("game.replay_dir", "")
	v.SetDefault("game.inbox_size", 64)
	v.SetDefault("game.target_score", 500)

	v.SetDefault("validation.min_username_length", 3)
	v.SetDefault("validation.max_username_length", 20)
	v.SetDefault("validation.min_password_length", 8)
	v.SetDefault("validation.bcrypt_cost", 10)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.HandSize < 1:
		return fmt.Errorf("game.hand_size must be at least 1, got %d", g.HandSize)
	case g.MinPlayers < 2:
		return fmt.Errorf("game.min_players must be at least 2, got %d", g.MinPlayers)
	case g.MaxPlayers < g.MinPlayers:
		return fmt.Errorf("game.max_players (%d) is below game.min_players (%d)", g.MaxPlayers, g.MinPlayers)
	case g.MaxPlayers*g.HandSize+1 > deckSize:
		return fmt.Errorf("%d players with %d cards each do not fit in a %d card deck", g.MaxPlayers, g.HandSize, deckSize)
	case g.InboxSize < 1:
		return fmt.Errorf("game.inbox_size must be positive, got %d", g.InboxSize)
	case g.TargetScore < 0:
		return fmt.Errorf("game.target_score must not be negative, got %d", g.TargetScore)
	}

	if c.Server.LeasePeriod <= 0 {
		return fmt.Errorf("server.lease_period must be positive")
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be positive")
	}
	if c.Server.WebSocket.PingInterval >= c.Server.WebSocket.ReadTimeout {
		return fmt.Errorf("server.websocket.ping_interval must be shorter than read_timeout")
	}

	val := c.Validation
	if val.MinUsernameLength < 1 || val.MaxUsernameLength < val.MinUsernameLength {
		return fmt.Errorf("invalid username length bounds %d..%d", val.MinUsernameLength, val.MaxUsernameLength)
	}
	if val.MinPasswordLength < 1 {
		return fmt.Errorf("validation.min_password_length must be positive")
	}
	if val.BcryptCost < 4 || val.BcryptCost > 31 {
		return fmt.Errorf("validation.bcrypt_cost must be between 4 and 31, got %d", val.BcryptCost)
	}
	return nil
}
