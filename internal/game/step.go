package game

// Step advances the simulation by dt seconds and returns the events it
// produced, in order:
//
//  1. queued intents
//  2. ship movement
//  3. auto-targeting
//  4. bullets and hits
//  5. island ownership
//  6. bots (their intents run next step)
func (s *State) Step(dt float64) []Event {
	if dt < 0 {
		dt = 0
	}
	s.tick++
	s.time += dt

	var events []Event
	events = s.applyIntents(events)
	events = s.advanceShips(dt, events)

	s.rebuildGrid()
	events = s.autoTarget(events)
	events = s.advanceBullets(dt, events)

	events = s.updateOwnership(events)
	events = s.runBots(events)
	return events
}
