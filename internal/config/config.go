// Package config provides centralized configuration management.
// Every tunable the server reads from the environment is declared here.
//
// Gameplay constants that are part of the rules (masses, ratios, radii) live
// in the game package; this file only covers deployment knobs.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds the arena dimensions written to the config row on Init.
type WorldConfig struct {
	Width   uint32 // World width in world units
	Height  uint32 // World height in world units
	MaxFood uint32 // Food pellets kept alive at all times
	Seed    int64  // RNG seed for spawn/food placement (0 = time-based)
}

// Upper bounds for world settings. The viewport grid is sized to the world
// area and rebuilt per snapshot, and Init places every pellet in one
// transaction.
const (
	MaxWorldDimension = 20000
	MaxFoodLimit      = 20000
)

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:   3000,
		Height:  3000,
		MaxFood: 200,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	cfg.Width = getEnvBounded("WORLD_WIDTH", cfg.Width, MaxWorldDimension)
	cfg.Height = getEnvBounded("WORLD_HEIGHT", cfg.Height, MaxWorldDimension)
	cfg.MaxFood = getEnvBounded("MAX_FOOD", cfg.MaxFood, MaxFoodLimit)
	if s := getEnvInt64("WORLD_SEED", 0); s != 0 {
		cfg.Seed = s
	}

	return cfg
}

// =============================================================================
// TIMING CONFIGURATION
// =============================================================================

// TimingConfig holds the periods of the scheduled handlers.
type TimingConfig struct {
	DecayInterval time.Duration // Period of the repeating decay tick
	MergeDelay    time.Duration // Delay between a split and its merge
	BroadcastRate int           // State frames per second sent to WebSocket clients
}

// DefaultTiming returns the default timing configuration.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		DecayInterval: 2 * time.Second,
		MergeDelay:    10 * time.Second,
		BroadcastRate: 10,
	}
}

// TimingFromEnv returns timing configuration with environment variable overrides.
func TimingFromEnv() TimingConfig {
	cfg := DefaultTiming()

	if ms := getEnvInt("DECAY_INTERVAL_MS", 0); ms > 0 {
		cfg.DecayInterval = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("MERGE_DELAY_MS", 0); ms > 0 {
		cfg.MergeDelay = time.Duration(ms) * time.Millisecond
	}
	if r := getEnvInt("BROADCAST_RATE", 0); r > 0 {
		cfg.BroadcastRate = r
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int
	MaxWSConnections int      // Hard cap on concurrent WebSocket clients
	ViewRadius       float64  // Extra radius around a player replicated to it
	AllowedOrigins   []string // CORS and WebSocket origins; nil uses the API's localhost list
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:             3000,
		MaxWSConnections: 1000,
		ViewRadius:       800,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mc := getEnvInt("MAX_WS_CONNECTIONS", 0); mc > 0 {
		cfg.MaxWSConnections = mc
	}
	if vr := getEnvFloat("VIEW_RADIUS", 0); vr > 0 {
		cfg.ViewRadius = vr
	}
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	return cfg
}

// =============================================================================
// RATE LIMIT CONFIGURATION
// =============================================================================

// RateLimitConfig holds per-IP HTTP limits and per-client command limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 // Per-IP HTTP requests per second
	Burst             int     // Per-IP HTTP burst
	CommandsPerSecond float64 // Per-connection reducer calls per second
	CommandBurst      int
}

// DefaultRateLimit returns the default rate limits.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CommandsPerSecond: 60, // One position update per frame plus actions
		CommandBurst:      30,
	}
}

// RateLimitFromEnv returns rate limits with environment variable overrides.
func RateLimitFromEnv() RateLimitConfig {
	cfg := DefaultRateLimit()

	if rps := getEnvFloat("RATE_LIMIT_RPS", 0); rps > 0 {
		cfg.RequestsPerSecond = rps
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	if cps := getEnvFloat("COMMANDS_PER_SECOND", 0); cps > 0 {
		cfg.CommandsPerSecond = cps
	}

	return cfg
}

// =============================================================================
// DEBUG CONFIGURATION
// =============================================================================

// DebugConfig controls the localhost pprof/metrics server.
type DebugConfig struct {
	Addr    string
	Enabled bool
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Addr:    "127.0.0.1:6060", // Localhost only
		Enabled: true,
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// JOURNAL CONFIGURATION
// =============================================================================

// JournalConfig holds the event journal settings.
type JournalConfig struct {
	Path string // JSONL file; empty keeps the journal in memory
}

// DefaultJournal returns the default journal configuration.
func DefaultJournal() JournalConfig {
	return JournalConfig{
		Path: "events.jsonl",
	}
}

// JournalFromEnv returns journal configuration with environment variable overrides.
// EVENT_LOG_PATH set to an empty string disables the file.
func JournalFromEnv() JournalConfig {
	cfg := DefaultJournal()

	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.Path = path
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World     WorldConfig
	Timing    TimingConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Debug     DebugConfig
	Journal   JournalConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:     WorldFromEnv(),
		Timing:    TimingFromEnv(),
		Server:    ServerFromEnv(),
		RateLimit: RateLimitFromEnv(),
		Debug:     DebugFromEnv(),
		Journal:   JournalFromEnv(),
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

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvBounded reads a positive integer no larger than limit. Anything else
// keeps defaultVal.
func getEnvBounded(key string, defaultVal, limit uint32) uint32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil || n == 0 {
		return defaultVal
	}
	if n > uint64(limit) {
		log.Printf("⚠️ %s=%d exceeds the limit of %d, using %d", key, n, limit, defaultVal)
		return defaultVal
	}
	return uint32(n)
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
