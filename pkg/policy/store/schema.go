package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the policy history schema.
const Schema = `
CREATE TABLE IF NOT EXISTS policy_versions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    checksum TEXT NOT NULL,
    loaded_at INTEGER NOT NULL,
    source TEXT NOT NULL,
    rules INTEGER NOT NULL,
    clauses INTEGER NOT NULL,
    text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policy_versions_checksum ON policy_versions(checksum);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const (
	insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`
	getSchemaVersion    = `SELECT MAX(version) FROM schema_version`

	insertVersion = `
INSERT INTO policy_versions (id, checksum, loaded_at, source, rules, clauses, text)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	pruneVersions = `
DELETE FROM policy_versions
WHERE seq NOT IN (SELECT seq FROM policy_versions ORDER BY seq DESC LIMIT ?)`

	selectLatest = `
SELECT id, checksum, loaded_at, source, rules, clauses, text
FROM policy_versions ORDER BY seq DESC LIMIT 1`

	selectByID = `
SELECT id, checksum, loaded_at, source, rules, clauses, text
FROM policy_versions WHERE id = ?`

	selectList = `
SELECT id, checksum, loaded_at, source, rules, clauses
FROM policy_versions ORDER BY seq DESC LIMIT ?`
)
