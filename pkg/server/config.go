package server

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/decred/slog"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
)

// Defaults for the serving loop.
const (
	DefaultBind          = "127.0.0.1:6969"
	DefaultTickInterval  = 50 * time.Millisecond
	DefaultOutboundQueue = 256

	// Stream timeouts. The blocking client-side streams use both; the
	// server applies WriteTimeout to each frame it writes and sets no
	// read deadline on its connections.
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 1 * time.Second
)

// Config holds everything needed to run a server.
type Config struct {
	Bind          string
	TickInterval  time.Duration
	OutboundQueue int
	Game          poker.GameSettings
	Log           slog.Logger
}

// NewConfig builds a config with defaults for the given buy-in.
func NewConfig(buyIn poker.Usd) Config {
	return Config{
		Bind:          DefaultBind,
		TickInterval:  DefaultTickInterval,
		OutboundQueue: DefaultOutboundQueue,
		Game:          poker.NewGameSettings(buyIn),
	}
}

// FileConfig is the TOML representation of the tunable settings. Zero
// fields keep their defaults.
type FileConfig struct {
	Bind        string `toml:"bind"`
	BuyIn       int64  `toml:"buy_in"`
	SmallBlind  int64  `toml:"small_blind"`
	BigBlind    int64  `toml:"big_blind"`
	MaxPlayers  int    `toml:"max_players"`
	MaxUsers    int    `toml:"max_users"`
	TurnTimeout string `toml:"turn_timeout"`
}

// LoadConfig reads a TOML config file and overlays it on cfg.
func LoadConfig(path string, cfg *Config) error {
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if fc.Bind != "" {
		cfg.Bind = fc.Bind
	}
	if fc.BuyIn > 0 {
		log, seed := cfg.Game.Log, cfg.Game.Seed
		cfg.Game = poker.NewGameSettings(fc.BuyIn)
		cfg.Game.Log, cfg.Game.Seed = log, seed
	}
	if fc.SmallBlind > 0 {
		cfg.Game.SmallBlind = fc.SmallBlind
	}
	if fc.BigBlind > 0 {
		cfg.Game.BigBlind = fc.BigBlind
	}
	if fc.MaxPlayers > 0 {
		cfg.Game.MaxPlayers = fc.MaxPlayers
	}
	if fc.MaxUsers > 0 {
		cfg.Game.MaxUsers = fc.MaxUsers
	}
	if fc.TurnTimeout != "" {
		d, err := time.ParseDuration(fc.TurnTimeout)
		if err != nil {
			return fmt.Errorf("config %s: turn_timeout: %w", path, err)
		}
		cfg.Game.TurnTimeout = d
	}
	return nil
}
