// Package manager orchestrates the lifecycle of the active LUCON policy.
//
// The manager reads policy text from a source (a file, or a directory of
// .pl, .pro and .lucon files), installs it into the policy engine, and records
// every installed version in the policy store. A rejected policy never
// replaces the active one.
//
// # Core Components
//
// DefaultPolicyManager coordinates loading, reloading, rollback and history.
//
// FileWatcher monitors the policy path with fsnotify and triggers reloads,
// debounced so that editors saving in several steps cause a single reload.
//
// Scheduler reloads the policy on a cron schedule, which picks up changes on
// file systems that do not deliver notifications.
//
// # Basic Usage
//
//	eng, _ := engine.NewEngine(manager.NewEngineConfig(&cfg.Policy), logger)
//	st, _ := store.NewSQLiteStore(&store.SQLiteConfig{Path: "data/policies.db"}, logger)
//
//	mgr, err := manager.NewPolicyManager(&cfg.Policy, eng, nil, st, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := mgr.LoadPolicies(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	go mgr.Watch(ctx)
//
// # Startup Without a Policy File
//
// When the configured path does not exist, LoadPolicies restores the latest
// version from the store, so a node keeps enforcing the last policy it was
// given through the API.
//
// # Error Recovery
//
// Load failures are returned as *LoadError and remembered for status
// reporting. The engine keeps evaluating against the previous theory.
// Reloads of unchanged text are skipped.
package manager
