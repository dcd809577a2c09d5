// Package server hosts simulation instances over websockets and exposes a
// small JSON admin API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"isles-of-conquest/internal/database"
	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/netsync"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

// Server is the main game server.
type Server struct {
	cfg       Config
	db        *database.DB
	stats     *StatsRecorder
	registry  *Registry
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	server    *http.Server
	defaultID string
	log       *logrus.Entry
}

// Config holds server configuration.
type Config struct {
	Addr   string
	DBPath string

	TickRate     int
	MaxInstances int
	MaxPlayers   int

	// WorldPreset is the preset of the instance created at startup and the
	// default for new instances. Empty means no startup instance.
	WorldPreset string
	// World, when set, replaces the preset of the same id.
	World *maps.Config

	Settings game.Settings
	Sync     netsync.Config

	// InboundRate and InboundBurst limit client batches per connection.
	InboundRate  float64
	InboundBurst int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":30000",
		DBPath:       "data/isles.db",
		TickRate:     20,
		MaxInstances: 4,
		MaxPlayers:   16,
		WorldPreset:  "standard",
		Settings:     game.DefaultSettings(),
		Sync:         netsync.DefaultConfig(),
		InboundRate:  40,
		InboundBurst: 20,
	}
}

// New creates a new server and starts the default instance.
func New(cfg Config) (*Server, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 2 * float64(cfg.TickRate)
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = cfg.TickRate
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		stats:    NewStatsRecorder(db),
		registry: NewRegistry(cfg.MaxInstances),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger.Log.WithField("component", "server"),
	}

	if n, err := db.CloseOpenInstances(); err != nil {
		s.log.WithError(err).Warn("Failed to close stale instances")
	} else if n > 0 {
		s.log.WithField("count", n).Info("Closed instances left over from last run")
	}

	s.mux = s.routes()

	if cfg.WorldPreset != "" {
		inst, err := s.CreateInstance(protocol.CreateInstancePayload{Name: "main", Preset: cfg.WorldPreset})
		if err != nil {
			s.stats.Close()
			db.Close()
			return nil, fmt.Errorf("failed to start default instance: %w", err)
		}
		s.defaultID = inst.ID
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/presets", s.handleListPresets)
	mux.HandleFunc("GET /api/instances", s.handleListInstances)
	mux.HandleFunc("POST /api/instances", s.handleCreateInstance)
	mux.HandleFunc("GET /api/instances/{id}", s.handleGetInstance)
	mux.HandleFunc("DELETE /api/instances/{id}", s.handleDeleteInstance)
	mux.HandleFunc("GET /api/instances/{id}/kills", s.handleKillLog)
	mux.HandleFunc("GET /api/stats/{name}", s.handleStats)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	return mux
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.mux,
	}

	s.log.WithFields(logrus.Fields{
		"addr":      s.cfg.Addr,
		"database":  s.cfg.DBPath,
		"tick_rate": s.cfg.TickRate,
		"instances": s.registry.Len(),
	}).Info("Isles of Conquest server listening")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	for _, inst := range s.registry.List() {
		s.DeleteInstance(inst.ID)
	}
	s.stats.Close()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateInstance generates a world and starts a new instance on it.
func (s *Server) CreateInstance(req protocol.CreateInstancePayload) (*Instance, error) {
	if err := s.registry.Reserve(); err != nil {
		return nil, err
	}

	wcfg, err := s.worldConfig(req.Preset)
	if err != nil {
		return nil, err
	}
	if req.Seed != nil {
		wcfg.Seed = *req.Seed
	}

	start := time.Now()
	world, err := maps.Generate(wcfg)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	settings := s.cfg.Settings
	if req.Bots != nil {
		settings.BotCount = max(0, *req.Bots)
	}

	inst := NewInstance(InstanceOptions{
		Name:       req.Name,
		World:      world,
		Settings:   settings,
		TickRate:   s.cfg.TickRate,
		MaxPlayers: s.cfg.MaxPlayers,
		Sync:       s.cfg.Sync,
		Stats:      s.stats,
	})
	if err := s.registry.Add(inst); err != nil {
		return nil, err
	}

	if _, err := s.db.CreateInstance(inst.ID, inst.Name, inst.Preset, inst.Seed, inst.Meta().Checksum); err != nil {
		s.log.WithError(err).WithField("instance", inst.ID).Error("Failed to record instance")
	}

	s.log.WithFields(logrus.Fields{
		"instance": inst.ID,
		"preset":   inst.Preset,
		"duration": time.Since(start),
	}).Info("World generated")
	if s.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		s.log.Trace("\n" + world.Debug(8))
	}

	inst.Start()
	return inst, nil
}

// DeleteInstance stops an instance and closes its record.
func (s *Server) DeleteInstance(id string) error {
	if err := s.registry.Remove(id); err != nil {
		return err
	}
	if err := s.db.CloseInstance(id); err != nil && !errors.Is(err, database.ErrInstanceNotFound) {
		s.log.WithError(err).WithField("instance", id).Error("Failed to close instance record")
	}
	return nil
}

func (s *Server) worldConfig(preset string) (maps.Config, error) {
	if preset == "" {
		preset = s.cfg.WorldPreset
	}
	if s.cfg.World != nil && (preset == "" || preset == s.cfg.World.ID) {
		return *s.cfg.World, nil
	}
	cfg, ok := maps.Get(preset)
	if !ok {
		return maps.Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	return cfg, nil
}

// instanceFor resolves the instance a websocket asks for; an empty id means
// the default instance.
func (s *Server) instanceFor(id string) (*Instance, bool) {
	if id == "" {
		id = s.defaultID
	}
	return s.registry.Get(id)
}

func (s *Server) newConn(inst *Instance) *Conn {
	return NewConn(inst, rate.Limit(s.cfg.InboundRate), s.cfg.InboundBurst)
}
