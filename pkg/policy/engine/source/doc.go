// Package source provides policy sources for the policy manager.
//
// A policy source reads the LUCON theory text that the manager installs into
// the engine. This package provides file-based and in-memory implementations.
//
// # File Source
//
// The file source reads a single policy file, or concatenates every .pl, .pro
// and .lucon file below a directory in lexical path order:
//
//	src := source.NewFileSource("policies/", logger)
//	doc, err := src.Load(ctx)
//
// Path reports what to watch for hot reload; the manager owns the watcher.
//
// # In-Memory Source
//
// The in-memory source is useful for testing:
//
//	src := source.NewMemorySource("test.pl", "rule(r).")
//	doc, err := src.Load(ctx)
package source
