package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileSource loads a policy from a file, or from every policy file below a
// directory.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a new file-based policy source.
// The path can be either a single file or a directory.
// If it's a directory, all files with a policy extension are concatenated in
// lexical path order.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "policy.source"),
	}
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads the policy text. A missing path yields an error matching
// fs.ErrNotExist.
func (s *FileSource) Load(ctx context.Context) (*Document, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = s.listDirectory()
		if err != nil {
			return nil, err
		}
	}

	var sb strings.Builder
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", path, err)
		}
		sb.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}

	s.logger.Debug("loaded policy text",
		"path", s.path,
		"files", len(files),
		"bytes", sb.Len(),
	)

	return &Document{Name: s.path, Text: sb.String(), Files: files}, nil
}

// listDirectory returns the policy files below the source directory, skipping
// hidden files and directories.
func (s *FileSource) listDirectory() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != s.path && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPolicyFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	slices.Sort(files)
	return files, nil
}

// IsPolicyFile reports whether path has a policy file extension.
func IsPolicyFile(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}
