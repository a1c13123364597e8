package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create access control tables",
		SQL: `
			CREATE TABLE api_tokens (
				token       TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_api_tokens_user ON api_tokens (user_id);

			CREATE TABLE profiles (
				user_id     TEXT PRIMARY KEY,
				is_tester   INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE feature_flags (
				name        TEXT PRIMARY KEY,
				enabled     INTEGER NOT NULL DEFAULT 0,
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create usage log",
		SQL: `
			CREATE TABLE ai_usage (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id     TEXT NOT NULL,
				kind        TEXT NOT NULL,
				tokens_in   INTEGER NOT NULL DEFAULT 0,
				tokens_out  INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_ai_usage_user ON ai_usage (user_id, created_at);
		`,
	},
}
