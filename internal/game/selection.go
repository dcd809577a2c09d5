package game

func (s *State) selectShips(p *Player, ids []ShipID, replace bool, events []Event) ([]Event, error) {
	if replace {
		clear(p.selected)
	}
	added := 0
	for _, id := range ids {
		if _, ok := s.ships[ShipKey{ID: id, Player: p.ID}]; !ok {
			continue
		}
		p.selected[id] = struct{}{}
		added++
	}
	events = append(events, selectionEvent(p))
	if added == 0 && len(ids) > 0 {
		return events, ErrUnknownShip
	}
	return events, nil
}

// deselectShips removes ids from the selection; no ids clears it.
func (s *State) deselectShips(p *Player, ids []ShipID, events []Event) []Event {
	if len(ids) == 0 {
		clear(p.selected)
	}
	for _, id := range ids {
		delete(p.selected, id)
	}
	return append(events, selectionEvent(p))
}

func selectionEvent(p *Player) Event {
	return Event{Kind: EventSelection, To: p.ID, Player: p.ID, Ships: p.Selected()}
}

// forgetShip drops a destroyed ship from its owner's selection.
func (s *State) forgetShip(k ShipKey) {
	if p := s.players[k.Player]; p != nil {
		delete(p.selected, k.ID)
	}
}
