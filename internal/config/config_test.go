package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Load()

	if cfg.World.Width != 3000 || cfg.World.Height != 3000 {
		t.Errorf("Expected 3000x3000 world, got %dx%d", cfg.World.Width, cfg.World.Height)
	}
	if cfg.World.MaxFood != 200 {
		t.Errorf("Expected 200 food, got %d", cfg.World.MaxFood)
	}
	if cfg.Timing.DecayInterval != 2*time.Second {
		t.Errorf("Expected 2s decay, got %v", cfg.Timing.DecayInterval)
	}
	if cfg.Timing.MergeDelay != 10*time.Second {
		t.Errorf("Expected 10s merge delay, got %v", cfg.Timing.MergeDelay)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if !cfg.Debug.Enabled {
		t.Error("Debug server should be enabled by default")
	}
	if cfg.Server.AllowedOrigins != nil {
		t.Errorf("Origins should default to nil (localhost only), got %v", cfg.Server.AllowedOrigins)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORLD_WIDTH", "1200")
	t.Setenv("WORLD_HEIGHT", "800")
	t.Setenv("MAX_FOOD", "50")
	t.Setenv("WORLD_SEED", "99")
	t.Setenv("DECAY_INTERVAL_MS", "500")
	t.Setenv("MERGE_DELAY_MS", "1500")
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_WS_CONNECTIONS", "12")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("COMMANDS_PER_SECOND", "30")
	t.Setenv("DEBUG_ADDR", "127.0.0.1:7070")
	t.Setenv("DISABLE_DEBUG_SERVER", "true")
	t.Setenv("EVENT_LOG_PATH", "")

	cfg := Load()

	if cfg.World.Width != 1200 || cfg.World.Height != 800 || cfg.World.MaxFood != 50 || cfg.World.Seed != 99 {
		t.Errorf("World overrides not applied: %+v", cfg.World)
	}
	if cfg.Timing.DecayInterval != 500*time.Millisecond || cfg.Timing.MergeDelay != 1500*time.Millisecond {
		t.Errorf("Timing overrides not applied: %+v", cfg.Timing)
	}
	if cfg.Server.Port != 8080 || cfg.Server.MaxWSConnections != 12 {
		t.Errorf("Server overrides not applied: %+v", cfg.Server)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.Burst != 4 || cfg.RateLimit.CommandsPerSecond != 30 {
		t.Errorf("Rate limit overrides not applied: %+v", cfg.RateLimit)
	}
	if cfg.Debug.Addr != "127.0.0.1:7070" || cfg.Debug.Enabled {
		t.Errorf("Debug overrides not applied: %+v", cfg.Debug)
	}
	if cfg.Journal.Path != "" {
		t.Errorf("Empty EVENT_LOG_PATH should disable the file, got %q", cfg.Journal.Path)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("WORLD_WIDTH", "wide")
	t.Setenv("PORT", "-1")
	t.Setenv("DECAY_INTERVAL_MS", "0")

	cfg := Load()

	if cfg.World.Width != DefaultWorld().Width {
		t.Errorf("Unparsable width should fall back, got %d", cfg.World.Width)
	}
	if cfg.Server.Port != DefaultServer().Port {
		t.Errorf("Negative port should fall back, got %d", cfg.Server.Port)
	}
	if cfg.Timing.DecayInterval != DefaultTiming().DecayInterval {
		t.Errorf("Zero interval should fall back, got %v", cfg.Timing.DecayInterval)
	}
}

func TestAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://arena.example , ,https://play.example")

	cfg := Load()

	want := []string{"https://arena.example", "https://play.example"}
	if len(cfg.Server.AllowedOrigins) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cfg.Server.AllowedOrigins)
	}
	for i := range want {
		if cfg.Server.AllowedOrigins[i] != want[i] {
			t.Errorf("Origin %d: expected %s, got %s", i, want[i], cfg.Server.AllowedOrigins[i])
		}
	}
}

func TestWorldLimits(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		get   func(AppConfig) uint32
		want  uint32
	}{
		{"width at limit", "WORLD_WIDTH", "20000", func(c AppConfig) uint32 { return c.World.Width }, MaxWorldDimension},
		{"width above limit", "WORLD_WIDTH", "20001", func(c AppConfig) uint32 { return c.World.Width }, DefaultWorld().Width},
		{"width past uint32", "WORLD_WIDTH", "4294967396", func(c AppConfig) uint32 { return c.World.Width }, DefaultWorld().Width},
		{"height above limit", "WORLD_HEIGHT", "99999999", func(c AppConfig) uint32 { return c.World.Height }, DefaultWorld().Height},
		{"food above limit", "MAX_FOOD", "1000000", func(c AppConfig) uint32 { return c.World.MaxFood }, DefaultWorld().MaxFood},
		{"negative food", "MAX_FOOD", "-5", func(c AppConfig) uint32 { return c.World.MaxFood }, DefaultWorld().MaxFood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if got := tt.get(Load()); got != tt.want {
				t.Errorf("%s=%s: expected %d, got %d", tt.key, tt.value, tt.want, got)
			}
		})
	}
}
