package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"isles-of-conquest/internal/server"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

func main() {
	defaults := server.DefaultConfig()

	port := flag.String("port", "30000", "Server port")
	dbPath := flag.String("db", defaults.DBPath, "Database path")
	tickRate := flag.Int("tick-rate", defaults.TickRate, "Simulation ticks per second")
	maxInstances := flag.Int("max-instances", defaults.MaxInstances, "Maximum concurrent instances")
	maxPlayers := flag.Int("max-players", defaults.MaxPlayers, "Maximum players per instance")
	preset := flag.String("preset", defaults.WorldPreset, "World preset of the startup instance (empty for none)")
	worldFile := flag.String("world", "", "World config JSON file overriding the preset")
	bots := flag.Int("bots", defaults.Settings.BotCount, "Bots per instance")
	flag.Parse()

	logger.Init()
	log := logger.Log

	if err := maps.LoadAll(); err != nil {
		log.WithError(err).Fatal("Failed to load world presets")
	}

	// Use PORT env var if set (required for Render.com and similar platforms)
	actualPort := *port
	if envPort := os.Getenv("PORT"); envPort != "" {
		actualPort = envPort
		log.WithField("port", actualPort).Info("Using PORT from environment")
	}

	// Use DB_PATH env var if set, for cloud deployments with persistent disks
	actualDBPath := *dbPath
	if envDBPath := os.Getenv("DB_PATH"); envDBPath != "" {
		actualDBPath = envDBPath
		log.WithField("db", actualDBPath).Info("Using DB_PATH from environment")
	}

	cfg := defaults
	cfg.Addr = ":" + actualPort
	cfg.DBPath = actualDBPath
	cfg.TickRate = envInt("TICK_RATE", *tickRate)
	cfg.MaxInstances = envInt("MAX_INSTANCES", *maxInstances)
	cfg.MaxPlayers = envInt("MAX_PLAYERS", *maxPlayers)
	cfg.Settings.BotCount = envInt("BOT_COUNT", *bots)
	cfg.WorldPreset = envString("WORLD_PRESET", *preset)

	if path := envString("WORLD_CONFIG", *worldFile); path != "" {
		world, err := maps.LoadConfigFile(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Fatal("Failed to load world config")
		}
		cfg.World = &world
		cfg.WorldPreset = world.ID
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}

	// Handle shutdown gracefully
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Error("Server error")
			done <- syscall.SIGTERM
		}
	}()

	<-done
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Log.WithField(key, v).Warn("Ignoring non-numeric environment value")
		return def
	}
	return n
}
