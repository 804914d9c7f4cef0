package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cell-arena/internal/api"
	"cell-arena/internal/config"
	"cell-arena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  CELL ARENA - GO ENGINE")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	worldCfg := appConfig.World
	timingCfg := appConfig.Timing
	serverCfg := appConfig.Server
	rateCfg := appConfig.RateLimit

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🎮 Config: %dx%d world, %d food, decay %v, merge %v, %d broadcasts/s",
		worldCfg.Width, worldCfg.Height, worldCfg.MaxFood,
		timingCfg.DecayInterval, timingCfg.MergeDelay, timingCfg.BroadcastRate)

	sched := game.NewTimerScheduler()
	engine := game.NewEngine(game.EngineConfig{
		WorldWidth:    worldCfg.Width,
		WorldHeight:   worldCfg.Height,
		MaxFood:       worldCfg.MaxFood,
		Seed:          worldCfg.Seed,
		DecayInterval: timingCfg.DecayInterval,
		MergeDelay:    timingCfg.MergeDelay,
		Scheduler:     sched,
	})

	// Start event log before Init so the init event is journaled
	eventLogPath := appConfig.Journal.Path
	if err := engine.StartEventLog(eventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if eventLogPath != "" {
		log.Printf("📝 Event log: %s", eventLogPath)
	}

	if err := engine.Init(); err != nil {
		log.Fatalf("Failed to initialize world: %v", err)
	}
	log.Println("✅ World initialized")

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.Enabled = appConfig.Debug.Enabled
	debugCfg.ListenAddr = appConfig.Debug.Addr
	debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	debugServer := api.StartDebugServer(debugCfg)

	broadcastInterval := api.DefaultBroadcastInterval
	if timingCfg.BroadcastRate > 0 {
		broadcastInterval = time.Second / time.Duration(timingCfg.BroadcastRate)
	}

	hubCfg := api.DefaultHubConfig()
	hubCfg.MaxConnections = serverCfg.MaxWSConnections
	hubCfg.CommandsPerSecond = rateCfg.CommandsPerSecond
	hubCfg.CommandBurst = rateCfg.CommandBurst
	hubCfg.BroadcastInterval = broadcastInterval
	hubCfg.ViewRadius = serverCfg.ViewRadius
	hubCfg.AllowedOrigins = serverCfg.AllowedOrigins

	server := api.NewServer(engine, api.ServerConfig{
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: rateCfg.RequestsPerSecond,
			Burst:             rateCfg.Burst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
		Hub:         hubCfg,
		CORSOrigins: serverCfg.AllowedOrigins,
	})

	// Start API server in goroutine
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("📊 State: http://localhost%s/api/state", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API server shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	sched.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
