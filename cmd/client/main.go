// Command client runs a headless player against a server or a local
// simulation and logs what it receives.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/client"
	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

func main() {
	profile := flag.String("profile", "", "Profile name for separate config (e.g., player1, player2)")
	local := flag.Bool("local", false, "Play an offline game against bots")
	serverAddr := flag.String("server", "", "Server address (overrides config)")
	instance := flag.String("instance", "", "Instance id (empty for the server default)")
	name := flag.String("name", "", "Player name (overrides config)")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	flag.Parse()

	logger.Init()
	log := logger.Log

	client.SetProfile(*profile)
	cfg, err := client.LoadConfig()
	if err != nil {
		log.WithError(err).Warn("Failed to load config, using defaults")
	}
	if *serverAddr != "" {
		cfg.LastServer = *serverAddr
	}
	if *instance != "" {
		cfg.LastInstance = *instance
	}
	if *name != "" {
		cfg.PlayerName = *name
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var c client.Client
	if *local {
		c, err = startLocal(cfg)
	} else {
		c, err = startRemote(ctx, cfg)
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to start client")
	}
	defer c.Close()

	if err := cfg.Save(); err != nil {
		log.WithError(err).Warn("Failed to save config")
	}

	run(ctx, c, cfg.TickRate)
	log.Info("Client stopped")
}

func startLocal(cfg *client.Config) (client.Client, error) {
	if err := maps.LoadAll(); err != nil {
		return nil, err
	}
	wcfg, ok := maps.Get(cfg.LocalPreset)
	if !ok {
		wcfg = maps.DefaultConfig()
	}
	world, err := maps.Generate(wcfg)
	if err != nil {
		return nil, err
	}

	settings := game.DefaultSettings()
	settings.BotCount = cfg.LocalBots
	return client.NewLocal(world, settings, cfg.PlayerName), nil
}

func startRemote(ctx context.Context, cfg *client.Config) (client.Client, error) {
	rc := client.NewRemote(cfg.Remote())
	if err := rc.Connect(ctx); err != nil {
		return nil, err
	}
	return rc, nil
}

// run ticks the client at rate and logs incoming messages. A lost remote
// connection is resumed with backoff.
func run(ctx context.Context, c client.Client, rate int) {
	log := logger.Log
	if rate <= 0 {
		rate = 20
	}
	interval := time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	backoff := time.Second
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			err := c.Tick(dt)
			if err != nil && !errors.Is(err, client.ErrNotConnected) {
				log.WithError(err).Warn("Tick failed")
			}
			if err != nil || !connected(c) {
				if err := c.Reconnect(ctx); err != nil {
					log.WithError(err).WithField("retry", backoff).Warn("Reconnect failed")
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					backoff = min(2*backoff, 30*time.Second)
					continue
				}
				log.WithField("player", c.Player()).Info("Reconnected")
				backoff = time.Second
			}

			for {
				m, ok := c.NextMessage()
				if !ok {
					break
				}
				logMessage(log, m)
			}
		}
	}
}

// connected reports false only for clients that track a live connection
// and have lost it.
func connected(c client.Client) bool {
	if cc, ok := c.(interface{ IsConnected() bool }); ok {
		return cc.IsConnected()
	}
	return true
}

func logMessage(log *logrus.Logger, m protocol.ServerMessage) {
	switch m.Type {
	case protocol.TypeWelcome:
		log.WithFields(logrus.Fields{"player": m.PlayerID, "instance": m.Instance}).Info("Joined")
	case protocol.TypeSnapshot:
		log.WithFields(logrus.Fields{
			"tick":    m.Snapshot.Tick,
			"players": len(m.Snapshot.Players),
			"ships":   len(m.Snapshot.Ships),
		}).Debug("Snapshot")
	case protocol.TypeEvent:
		log.WithFields(logrus.Fields{"event": m.Event.Kind, "player": m.Event.Player}).Debug("Event")
	case protocol.TypeError:
		log.WithFields(logrus.Fields{"code": m.Error.Code, "message": m.Error.Message}).Warn("Server error")
	default:
		log.WithFields(logrus.Fields{"type": m.Type, "player": m.PlayerID}).Info("Connection notice")
	}
}
