package protocol

import (
	"isles-of-conquest/internal/game"
)

// Admin API payloads. These travel as JSON over plain HTTP.

// HealthPayload is returned by the health check.
type HealthPayload struct {
	Status    string `json:"status"`
	Instances int    `json:"instances"`
	Players   int    `json:"players"`
}

// CreateInstancePayload requests a new simulation instance.
type CreateInstancePayload struct {
	Name   string `json:"name"`
	Preset string `json:"preset"`
	Seed   *int64 `json:"seed,omitempty"`
	Bots   *int   `json:"bots,omitempty"`
}

// InstanceInfo describes a running instance.
type InstanceInfo struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Preset     string         `json:"preset"`
	Seed       int64          `json:"seed"`
	Tick       uint64         `json:"tick"`
	Players    int            `json:"players"`
	Bots       int            `json:"bots"`
	MaxPlayers int            `json:"maxPlayers"`
	Islands    int            `json:"islands"`
	World      game.WorldMeta `json:"world"`
	CreatedAt  int64          `json:"createdAt"`
}

// InstanceListPayload lists running instances.
type InstanceListPayload struct {
	Instances []InstanceInfo `json:"instances"`
}

// PresetListPayload lists the available world presets.
type PresetListPayload struct {
	Presets []PresetInfo `json:"presets"`
}

// PresetInfo names a world preset.
type PresetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatsPayload is a player's lifetime record.
type StatsPayload struct {
	Name      string `json:"name"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	UpdatedAt int64  `json:"updatedAt"`
}

// LeaderboardPayload lists the top players by kills.
type LeaderboardPayload struct {
	Players []StatsPayload `json:"players"`
}

// KillEvent is one entry of an instance's kill log.
type KillEvent struct {
	Tick      uint64 `json:"tick"`
	Killer    string `json:"killer"`
	Victim    string `json:"victim"`
	Timestamp int64  `json:"timestamp"`
}

// KillLogPayload is the recent kill log of an instance.
type KillLogPayload struct {
	InstanceID string      `json:"instanceId"`
	Kills      []KillEvent `json:"kills"`
}
