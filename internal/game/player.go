package game

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"isles-of-conquest/pkg/geom"
)

// PlayerID identifies a player. Zero means nobody.
type PlayerID uint64

// MaxNameLength is the longest accepted player name, in runes.
const MaxNameLength = 24

// Flags is the fixed list player flags are picked from.
var Flags = []string{
	"anchor",
	"albatross",
	"compass",
	"coral",
	"cutlass",
	"dolphin",
	"gull",
	"kraken",
	"lantern",
	"mermaid",
	"narwhal",
	"orca",
	"pearl",
	"serpent",
	"skull",
	"trident",
}

// FlagFor returns the flag of a player. The same id always yields the same
// flag.
func FlagFor(id PlayerID) string {
	r := rand.New(rand.NewSource(int64(id) * 7919))
	return Flags[r.Intn(len(Flags))]
}

// Player is a human or bot commanding a fleet.
type Player struct {
	ID          PlayerID
	Name        string
	Flag        string
	IsBot       bool
	ShootRadius float64
	Kills       int
	Deaths      int
	Home        geom.V2D

	selected map[ShipID]struct{}
	nextShip ShipID
	rng      *rand.Rand
}

// NewPlayer creates a player with its own seeded random source.
func NewPlayer(id PlayerID, name string, seed int64) *Player {
	p := &Player{
		ID:       id,
		Flag:     FlagFor(id),
		selected: make(map[ShipID]struct{}),
		rng:      rand.New(rand.NewSource(seed ^ int64(id)*104729)),
	}
	if n, err := cleanName(name); err == nil {
		p.Name = n
	} else {
		p.Name = defaultName(p)
	}
	return p
}

func defaultName(p *Player) string {
	if p.IsBot {
		return fmt.Sprintf("Bot %s%s %d", strings.ToUpper(p.Flag[:1]), p.Flag[1:], p.ID)
	}
	return fmt.Sprintf("Captain %d", p.ID)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name, nil
}

// Selected returns the selected ship ids in ascending order.
func (p *Player) Selected() []ShipID {
	ids := make([]ShipID, 0, len(p.selected))
	for id := range p.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsSelected reports whether a ship of this player is selected.
func (p *Player) IsSelected(id ShipID) bool {
	_, ok := p.selected[id]
	return ok
}

// Rand returns the player's random source.
func (p *Player) Rand() *rand.Rand { return p.rng }

// IDAllocator hands out player ids. It is shared between the network layer
// and the simulation, so it is safe for concurrent use.
type IDAllocator struct {
	last atomic.Uint64
}

// NewIDAllocator creates an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh id.
func (a *IDAllocator) Next() PlayerID {
	return PlayerID(a.last.Add(1))
}
