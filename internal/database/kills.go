package database

import "time"

// KillEvent is one entry of an instance's kill log.
type KillEvent struct {
	ID         int64
	InstanceID string
	Tick       uint64
	Killer     string
	Victim     string
	CreatedAt  time.Time
}

// AddKillEvent appends to an instance's kill log.
func (db *DB) AddKillEvent(instanceID string, tick uint64, killer, victim string) error {
	_, err := db.conn.Exec(`
		INSERT INTO kill_events (instance_id, tick, killer, victim, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, instanceID, tick, killer, victim, time.Now())
	return err
}

// RecentKills returns the latest limit kills of an instance, newest first.
func (db *DB) RecentKills(instanceID string, limit int) ([]*KillEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, instance_id, tick, killer, victim, created_at
		FROM kill_events
		WHERE instance_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, instanceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*KillEvent
	for rows.Next() {
		e := &KillEvent{}
		if err := rows.Scan(&e.ID, &e.InstanceID, &e.Tick, &e.Killer, &e.Victim, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// KillsSince returns an instance's kills after a given id, oldest first.
func (db *DB) KillsSince(instanceID string, afterID int64) ([]*KillEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, instance_id, tick, killer, victim, created_at
		FROM kill_events
		WHERE instance_id = ? AND id > ?
		ORDER BY id ASC
	`, instanceID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*KillEvent
	for rows.Next() {
		e := &KillEvent{}
		if err := rows.Scan(&e.ID, &e.InstanceID, &e.Tick, &e.Killer, &e.Victim, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
