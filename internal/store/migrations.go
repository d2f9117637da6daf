package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL,
	status         TEXT NOT NULL,
	mail_count     INTEGER NOT NULL DEFAULT 0,
	headline_count INTEGER NOT NULL DEFAULT 0,
	weather_text   TEXT NOT NULL DEFAULT '',
	text_body      TEXT NOT NULL DEFAULT '',
	html_body      TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
