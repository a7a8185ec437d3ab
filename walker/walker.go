// Package walker enumerates a directory tree down to a fixed depth.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"slices"
	"path/filepath"
	"strings"
)

// ErrNotDirectory is returned when the walk root is missing or not a directory.
var ErrNotDirectory = errors.New("walk root is not a directory")

// Entry describes one visited directory.
type Entry struct {
	Depth int      // 0 for the root itself
	Path  string   // Path of the directory
	Dirs  []string // Names of the immediate subdirectories
	Files []string // Names of every other entry
	Links []string // Names in Dirs that are symlinks; these are never descended into
}

// Walk visits root and its subdirectories depth-first, yielding one Entry per
// directory. Directories deeper than maxDepth are never read. A consumer may
// prune the walk below an entry by clearing its Dirs before continuing.
//
// The first yielded error ends the walk.
func Walk(root string, maxDepth int) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			yield(nil, fmt.Errorf("%w: %w", ErrNotDirectory, err))
			return
		}
		if !info.IsDir() {
			yield(nil, fmt.Errorf("%w: %s", ErrNotDirectory, root))
			return
		}
		walk(root, root, maxDepth, yield)
	}
}

// walk returns false once the consumer stopped or an error was yielded.
func walk(root, dir string, maxDepth int, yield func(*Entry, error) bool) bool {
	depth, err := Depth(root, dir)
	if err != nil {
		yield(nil, err)
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		yield(nil, fmt.Errorf("failed to read directory %s: %w", dir, err))
		return false
	}

	e := &Entry{Depth: depth, Path: dir}
	for _, de := range entries {
		switch {
		case de.IsDir():
			e.Dirs = append(e.Dirs, de.Name())
		case de.Type()&fs.ModeSymlink != 0 && isDirLink(filepath.Join(dir, de.Name())):
			e.Dirs = append(e.Dirs, de.Name())
			e.Links = append(e.Links, de.Name())
		default:
			e.Files = append(e.Files, de.Name())
		}
	}

	if !yield(e, nil) {
		return false
	}

	if depth >= maxDepth {
		e.Dirs = nil
		return true
	}

	for _, sub := range e.Dirs {
		if slices.Contains(e.Links, sub) {
			continue
		}
		if !walk(root, filepath.Join(dir, sub), maxDepth, yield) {
			return false
		}
	}
	return true
}

// isDirLink reports whether the symlink at path resolves to a directory.
// Dangling links are not directories.
func isDirLink(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Depth returns how many path separators separate path from root. Both are
// cleaned first, so a trailing separator on either side makes no difference.
func Depth(root, path string) (int, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("failed to compute depth of %s: %w", path, err)
	}
	if rel == "." {
		return 0, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, fmt.Errorf("path %s is outside of root %s", path, root)
	}
	return strings.Count(rel, string(filepath.Separator)) + 1, nil
}
