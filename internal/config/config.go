// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server and match settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"fightcore/internal/sim"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port             int
	MaxRooms         int
	AllowedOrigins   []string
	DisableDebugMux  bool
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		MaxRooms:       256,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mr := getEnvInt("MAX_ROOMS", 0); mr > 0 {
		cfg.MaxRooms = mr
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}
	cfg.DisableDebugMux = os.Getenv("DISABLE_DEBUG_SERVER") == "true"

	return cfg
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchSettings holds the server-wide defaults new matches are created
// with, before any per-room override (spec.md §3 MatchConfig).
type MatchSettings struct {
	TickRate             int
	InitialLives         int
	MatchDurationTicks   int
	SuddenDeathStartTick int
	StompEnabled         bool
	MapRotationPath      string
}

// DefaultMatch returns the default match settings.
func DefaultMatch() MatchSettings {
	return MatchSettings{
		TickRate:             60,
		InitialLives:         1,
		MatchDurationTicks:   1800,
		SuddenDeathStartTick: 1200,
		StompEnabled:         false,
		MapRotationPath:      "config/maps.yaml",
	}
}

// MatchFromEnv returns match settings with environment variable overrides.
func MatchFromEnv() MatchSettings {
	cfg := DefaultMatch()

	if d := getEnvInt("MATCH_DURATION_TICKS", 0); d > 0 {
		cfg.MatchDurationTicks = d
	}
	if sd := getEnvInt("SUDDEN_DEATH_START_TICK", 0); sd > 0 {
		cfg.SuddenDeathStartTick = sd
	}
	if lives := getEnvInt("INITIAL_LIVES", 0); lives > 0 {
		cfg.InitialLives = lives
	}
	cfg.StompEnabled = os.Getenv("STOMP_ENABLED") == "true"
	if p := os.Getenv("MAP_ROTATION_PATH"); p != "" {
		cfg.MapRotationPath = p
	}

	return cfg
}

// =============================================================================
// MAP ROTATION LOADING
// =============================================================================

// mapRotationFile mirrors the on-disk YAML shape of a map rotation file;
// viper unmarshals into this before conversion to sim.GameMap. sim.GameMap
// is tagged `yaml`, not `mapstructure`, so the viper decoder below is told
// to read those tags instead of its mapstructure default. The nested
// Platform/SpawnPoint/WeaponSpawnPoint structs carry no tags; their
// lowercase YAML keys (x, y, w, h) match the field names case-insensitively.
type mapRotationFile struct {
	Maps []sim.GameMap `yaml:"maps"`
}

// yamlTagDecoder points viper's mapstructure decoder at the `yaml` struct
// tags sim.GameMap already carries, instead of requiring a parallel set of
// `mapstructure` tags.
func yamlTagDecoder(c *mapstructure.DecoderConfig) {
	c.TagName = "yaml"
}

// LoadMapRotation reads the YAML-described map rotation used by the lobby's
// map selection (SPEC_FULL.md §4.6 "Map rotation"). Falls back to a single
// built-in arena if the file cannot be read, so a server can boot with no
// external config present.
func LoadMapRotation(path string) ([]sim.GameMap, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return []sim.GameMap{defaultArena()}, err
	}

	var parsed mapRotationFile
	if err := v.Unmarshal(&parsed, viper.DecoderConfigOption(yamlTagDecoder)); err != nil {
		return []sim.GameMap{defaultArena()}, err
	}
	if len(parsed.Maps) == 0 {
		return []sim.GameMap{defaultArena()}, nil
	}
	return parsed.Maps, nil
}

func defaultArena() sim.GameMap {
	return sim.GameMap{
		Name:   "proving-grounds",
		Width:  960,
		Height: 540,
		Platforms: []sim.Platform{
			{X: 0, Y: 500, W: 960, H: 40},
			{X: 120, Y: 380, W: 220, H: 20},
			{X: 620, Y: 380, W: 220, H: 20},
			{X: 380, Y: 260, W: 200, H: 20},
		},
		SpawnPoints: []sim.SpawnPoint{
			{X: 120, Y: 400},
			{X: 800, Y: 400},
		},
		WeaponSpawnPoints: []sim.WeaponSpawnPoint{
			{X: 470, Y: 210},
			{X: 150, Y: 330},
			{X: 750, Y: 330},
		},
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Match  MatchSettings
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Match:  MatchFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
