package database

import (
	"database/sql"
	"errors"
	"time"
)

// InstanceRecord is the persisted history of one hosted world.
type InstanceRecord struct {
	ID        string
	Name      string
	Preset    string
	Seed      int64
	Checksum  string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// ErrInstanceNotFound is returned when an instance record does not exist.
var ErrInstanceNotFound = errors.New("instance not found")

// CreateInstance records a newly started instance.
func (db *DB) CreateInstance(id, name, preset string, seed int64, checksum string) (*InstanceRecord, error) {
	now := time.Now()
	_, err := db.conn.Exec(`
		INSERT INTO instances (id, name, preset, seed, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, name, preset, seed, checksum, now)
	if err != nil {
		return nil, err
	}
	return &InstanceRecord{
		ID:        id,
		Name:      name,
		Preset:    preset,
		Seed:      seed,
		Checksum:  checksum,
		CreatedAt: now,
	}, nil
}

// GetInstance retrieves an instance record by id.
func (db *DB) GetInstance(id string) (*InstanceRecord, error) {
	var r InstanceRecord
	var closedAt sql.NullTime
	err := db.conn.QueryRow(`
		SELECT id, name, preset, seed, checksum, created_at, closed_at
		FROM instances WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.Preset, &r.Seed, &r.Checksum, &r.CreatedAt, &closedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		r.ClosedAt = &closedAt.Time
	}
	return &r, nil
}

// CloseInstance stamps an instance as shut down.
func (db *DB) CloseInstance(id string) error {
	result, err := db.conn.Exec(`
		UPDATE instances SET closed_at = ? WHERE id = ? AND closed_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// CloseOpenInstances stamps every instance left open by an unclean
// shutdown. It returns how many were closed.
func (db *DB) CloseOpenInstances() (int64, error) {
	result, err := db.conn.Exec(`
		UPDATE instances SET closed_at = ? WHERE closed_at IS NULL
	`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
