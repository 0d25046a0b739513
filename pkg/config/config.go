package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Game     GameConfig     `mapstructure:"game"`
	Tokens   []TokenConfig  `mapstructure:"tokens"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	TLSCert  string `mapstructure:"tls_cert"`
	TLSKey   string `mapstructure:"tls_key"`
}

// DatabaseConfig selects the persistence backend by URL: "memory" keeps
// everything in process, a postgres:// URL uses Postgres, anything else
// is treated as a SQLite file path.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LedgerConfig points at the external transfer endpoint. An empty URL
// logs transfers instead of submitting them.
type LedgerConfig struct {
	URL string `mapstructure:"url"`
}

type GameConfig struct {
	ServiceFeeBps    uint32        `mapstructure:"service_fee_bps"`
	ReferralRatioBps uint32        `mapstructure:"referral_ratio_bps"`
	MaxGameDuration  time.Duration `mapstructure:"max_game_duration"`
	MaxTurnDuration  time.Duration `mapstructure:"max_turn_duration"`
	GraceWindow      time.Duration `mapstructure:"grace_window"`
	MaxStoredGames   int           `mapstructure:"max_stored_games"`
	BoardSize        int           `mapstructure:"board_size"`
	WinLength        int           `mapstructure:"win_length"`
}

type TokenConfig struct {
	Token      string `mapstructure:"token"`
	MinDeposit uint64 `mapstructure:"min_deposit"`
}

// Load reads the config file at path, falling back to defaults for any
// missing value. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.url", "memory")
	v.SetDefault("game.service_fee_bps", 1000)
	v.SetDefault("game.referral_ratio_bps", 9500)
	v.SetDefault("game.max_game_duration", time.Hour)
	v.SetDefault("game.max_turn_duration", time.Hour/25)
	v.SetDefault("game.grace_window", 10*time.Minute)
	v.SetDefault("game.max_stored_games", 50)
	v.SetDefault("game.board_size", 5)
	v.SetDefault("game.win_length", 5)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	return cfg, nil
}
