//go:build !linux

package atomicfs

import (
	"os"
	"path/filepath"
	"syscall"
)

// renameNoReplace renames src to dest, failing if dest already exists.
// Without renameat2 the existence check cannot be atomic with the
// rename; the engine is the sole writer of its paths, so the window is
// acceptable here.
func renameNoReplace(src, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dest, Err: syscall.EEXIST}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.Rename(src, dest)
}

// linkFollow hardlinks src to dest, resolving src first when it is a
// symlink.
func linkFollow(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(src), target)
		}
		src = target
	}
	return os.Link(src, dest)
}
