package game

import (
	"isles-of-conquest/pkg/maps"
)

// computeOwners counts ships inside every island footprint. The player with
// the most ships owns the island; ties go to the lowest player id.
func (s *State) computeOwners() map[maps.IslandID]PlayerID {
	counts := make(map[maps.IslandID]map[PlayerID]int)
	for k, ship := range s.ships {
		id := s.world.IslandAt(ship.Position)
		if id == 0 || s.world.Island(id) == nil {
			continue
		}
		if counts[id] == nil {
			counts[id] = make(map[PlayerID]int)
		}
		counts[id][k.Player]++
	}

	owners := make(map[maps.IslandID]PlayerID, len(counts))
	for id, byPlayer := range counts {
		var best PlayerID
		bestCount := 0
		for pid, n := range byPlayer {
			if n > bestCount || (n == bestCount && pid < best) {
				best, bestCount = pid, n
			}
		}
		owners[id] = best
	}
	return owners
}

// updateOwnership recomputes owners and emits one event per changed island.
func (s *State) updateOwnership(events []Event) []Event {
	owners := s.computeOwners()
	for _, c := range Diff(s.owners, owners) {
		ev := Event{Kind: EventIslandOwner, Island: c.Key}
		if c.Kind != ChangeRemove {
			ev.Player = c.New
		}
		events = append(events, ev)
	}
	s.owners = owners
	return events
}
