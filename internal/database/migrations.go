package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Player stats: lifetime kills and deaths keyed by display name
			CREATE TABLE player_stats (
				name TEXT PRIMARY KEY,
				kills INTEGER NOT NULL DEFAULT 0,
				deaths INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_player_stats_kills ON player_stats(kills DESC);

			-- Instances: every world the server has hosted
			CREATE TABLE instances (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				preset TEXT NOT NULL,
				seed INTEGER NOT NULL,
				checksum TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				closed_at DATETIME
			);
			CREATE INDEX idx_instances_open ON instances(closed_at);
		`,
	},
	{
		id:   2,
		name: "add_kill_events",
		sql: `
			-- Kill log: one row per sunk ship
			CREATE TABLE kill_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				instance_id TEXT NOT NULL,
				tick INTEGER NOT NULL,
				killer TEXT NOT NULL,
				victim TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (instance_id) REFERENCES instances(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_kill_events_instance ON kill_events(instance_id, id);
		`,
	},
}
