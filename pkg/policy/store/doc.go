// Package store keeps the history of policies loaded into the engine.
//
// Every successful load is recorded as a Version carrying its identifier,
// checksum, load time, rule count and source text. On startup without a
// policy file the policy manager restores the latest version.
//
// Two backends are provided. SQLiteStore persists versions through either the
// pure Go driver (modernc.org/sqlite, driver name "sqlite") or the cgo driver
// (github.com/mattn/go-sqlite3, driver name "sqlite3"); MemoryStore keeps
// them in memory. Both prune to a configured number of newest versions.
package store
