// Package paths provides ordered filesystem traversal helpers shared
// by the description and verification tooling.
package paths

import (
	"os"
	"path/filepath"
	"sort"
)

// WalkOptions controls WalkOrderly.
type WalkOptions struct {
	// IncludeDirectories emits directories themselves, before their
	// sorted contents.
	IncludeDirectories bool

	// FollowSymlinks stats through symlinks and descends into
	// symlinked directories.
	FollowSymlinks bool

	// Reverse walks each directory's entries in descending order.
	Reverse bool

	// OnError, when set, receives stat/readdir failures and lets the
	// walk continue (return nil) or abort (return the error). When
	// unset any failure aborts the walk.
	OnError func(path string, err error) error
}

// VisitFunc receives each walked path with its file info (lstat-style
// unless FollowSymlinks is set).
type VisitFunc func(path string, info os.FileInfo) error

// WalkOrderly walks path in deterministic lexicographic order. Unlike
// filepath.WalkDir it accepts a non-directory root, which yields a
// single visit.
func WalkOrderly(path string, opts WalkOptions, visit VisitFunc) error {
	info, err := statFor(path, opts.FollowSymlinks)
	if err != nil {
		return walkErr(path, err, opts)
	}
	return walkOrderly(path, info, opts, visit)
}

func statFor(path string, follow bool) (os.FileInfo, error) {
	if follow {
		return os.Stat(path)
	}
	return os.Lstat(path)
}

func walkErr(path string, err error, opts WalkOptions) error {
	if opts.OnError != nil {
		return opts.OnError(path, err)
	}
	return err
}

func walkOrderly(path string, info os.FileInfo, opts WalkOptions, visit VisitFunc) error {
	if !info.IsDir() {
		return visit(path, info)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return walkErr(path, err, opts)
	}
	// os.ReadDir sorts by name already.
	if opts.Reverse {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })
	}

	if opts.IncludeDirectories {
		if err := visit(path, info); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		epath := filepath.Join(path, entry.Name())
		einfo, err := statFor(epath, opts.FollowSymlinks)
		if err != nil {
			if err = walkErr(epath, err, opts); err != nil {
				return err
			}
			continue
		}
		if err := walkOrderly(epath, einfo, opts, visit); err != nil {
			return err
		}
	}
	return nil
}
