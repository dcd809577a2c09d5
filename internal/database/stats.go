package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PlayerStats is the persisted record of one player name.
type PlayerStats struct {
	Name      string
	Kills     int
	Deaths    int
	UpdatedAt time.Time
}

// ErrPlayerNotFound is returned when no stats exist for a name.
var ErrPlayerNotFound = errors.New("player not found")

// ErrInvalidName is returned for empty player names.
var ErrInvalidName = errors.New("invalid player name")

// AddStats increments a player's kills and deaths, creating the record if
// needed. The upsert is a single statement so concurrent callers never lose
// an increment.
func (db *DB) AddStats(name string, kills, deaths int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	_, err := db.conn.Exec(`
		INSERT INTO player_stats (name, kills, deaths, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kills = kills + excluded.kills,
			deaths = deaths + excluded.deaths,
			updated_at = excluded.updated_at
	`, name, kills, deaths, time.Now())
	if err != nil {
		return fmt.Errorf("upsert stats for %q: %w", name, err)
	}
	return nil
}

// RecordKill credits the killer and charges the victim in one transaction.
func (db *DB) RecordKill(killer, victim string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	upsert := `
		INSERT INTO player_stats (name, kills, deaths, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kills = kills + excluded.kills,
			deaths = deaths + excluded.deaths,
			updated_at = excluded.updated_at
	`
	if killer != "" {
		if _, err := tx.Exec(upsert, killer, 1, 0, now); err != nil {
			return fmt.Errorf("credit %q: %w", killer, err)
		}
	}
	if victim != "" {
		if _, err := tx.Exec(upsert, victim, 0, 1, now); err != nil {
			return fmt.Errorf("charge %q: %w", victim, err)
		}
	}
	return tx.Commit()
}

// GetStats retrieves the stats of a player name.
func (db *DB) GetStats(name string) (*PlayerStats, error) {
	var s PlayerStats
	err := db.conn.QueryRow(`
		SELECT name, kills, deaths, updated_at
		FROM player_stats WHERE name = ?
	`, strings.TrimSpace(name)).Scan(&s.Name, &s.Kills, &s.Deaths, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TopStats returns up to limit players ordered by kills, then fewest deaths.
func (db *DB) TopStats(limit int) ([]*PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT name, kills, deaths, updated_at
		FROM player_stats
		ORDER BY kills DESC, deaths ASC, name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*PlayerStats
	for rows.Next() {
		s := &PlayerStats{}
		if err := rows.Scan(&s.Name, &s.Kills, &s.Deaths, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
