// Package security guards the files the CLI writes: CSV exports and
// database backups may only land under the working directory or the
// system temp directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned for a path that resolves outside every
// allowed directory.
var ErrOutsideAllowedDirs = errors.New("path outside allowed directories")

const maxFilenameLen = 128

// canonical resolves path to an absolute path with symlinks evaluated. For
// a path that does not exist yet, the nearest existing ancestor is resolved
// and the rest re-appended, so a symlinked parent cannot smuggle the file
// elsewhere.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rel), nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return abs, nil
		}
	}
}

// Within reports an error unless path resolves inside dir.
func Within(path, dir string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	d, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s escapes %s", ErrOutsideAllowedDirs, path, dir)
	}
	return nil
}

// WithinAny reports an error unless path resolves inside one of dirs.
func WithinAny(path string, dirs ...string) error {
	if len(dirs) == 0 {
		return errors.New("no allowed directories")
	}
	for _, dir := range dirs {
		if Within(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be under one of %v", ErrOutsideAllowedDirs, path, dirs)
}

// ValidateOutputPath accepts paths under the working directory or the
// system temp directory.
func ValidateOutputPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAny(path, cwd, os.TempDir())
}

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash.
// Runs of anything else become one underscore; the result is trimmed of
// leading and trailing dots and underscores and capped in length.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		if isFilenameRune(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	if out == "" {
		return "unknown"
	}
	return out
}

func isFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
