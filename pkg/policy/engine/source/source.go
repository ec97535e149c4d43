package source

import "context"

// Extensions lists the file extensions recognized as policy files.
var Extensions = []string{".pl", ".pro", ".lucon"}

// Document is the policy text read from a source.
type Document struct {
	// Name identifies the document in error messages.
	Name string

	// Text is the theory source. Directory sources concatenate their files.
	Text string

	// Files lists the files the text was read from, in concatenation order.
	Files []string
}

// Source provides policy text to the policy manager.
type Source interface {
	// Load reads the current policy text.
	Load(ctx context.Context) (*Document, error)

	// Path returns the filesystem path backing the source, or "" when the
	// source cannot be watched.
	Path() string
}
