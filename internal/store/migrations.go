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

CREATE TABLE IF NOT EXISTS emails (
	scope       TEXT NOT NULL,
	id          TEXT NOT NULL,
	position    INTEGER NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	sender      TEXT NOT NULL DEFAULT '',
	from_email  TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	preview     TEXT NOT NULL DEFAULT '',
	created_at  TEXT,
	is_preview  INTEGER NOT NULL DEFAULT 0,
	raw_data    TEXT NOT NULL,
	PRIMARY KEY (scope, id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_emails_id ON emails(id);
CREATE INDEX IF NOT EXISTS idx_emails_scope_label ON emails(scope, label);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
