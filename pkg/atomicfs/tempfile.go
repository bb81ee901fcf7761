package atomicfs

import (
	"io"
	"os"
	"path/filepath"
)

// TempSuffix is appended to a destination path to form its sibling
// temp path. Siblings stay on the destination's filesystem, so the
// final rename/replace is atomic.
const TempSuffix = ".part"

// TempPath returns the sibling temp path used to stage dest.
func TempPath(dest string) string {
	return dest + TempSuffix
}

// ensureParent creates dest's parent directory tree.
func ensureParent(dest string) error {
	return os.MkdirAll(filepath.Dir(dest), 0777)
}

// createTemp opens the temp sibling of dest exclusively: a leftover or
// colliding pending temp surfaces here instead of being clobbered.
func createTemp(dest string, perm os.FileMode) (*os.File, error) {
	if err := ensureParent(dest); err != nil {
		return nil, err
	}
	return os.OpenFile(TempPath(dest), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}

// writeTemp stages data in dest's temp sibling and returns its path.
func writeTemp(data []byte, dest string) (string, error) {
	f, err := createTemp(dest, 0666)
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// linkTemp stages a hardlink to src in dest's temp sibling. With
// followSymlinks a symlinked src is resolved first; otherwise the
// symlink itself is linked.
func linkTemp(src, dest string, followSymlinks bool) (string, error) {
	if err := ensureParent(dest); err != nil {
		return "", err
	}
	tmp := TempPath(dest)
	var err error
	if followSymlinks {
		err = linkFollow(src, tmp)
	} else {
		err = os.Link(src, tmp)
	}
	if err != nil {
		return "", err
	}
	return tmp, nil
}

// symlinkTemp stages a symlink to target in dest's temp sibling. The
// target is not required to exist.
func symlinkTemp(target, dest string) (string, error) {
	if err := ensureParent(dest); err != nil {
		return "", err
	}
	tmp := TempPath(dest)
	if err := os.Symlink(target, tmp); err != nil {
		return "", err
	}
	return tmp, nil
}

// copyTemp stages a duplicate of src in dest's temp sibling, keeping
// mode and mtime. Without followSymlinks a symlinked src is duplicated
// as a fresh symlink to the same target.
func copyTemp(src, dest string, followSymlinks bool) (string, error) {
	fi, err := os.Lstat(src)
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink != 0 && !followSymlinks {
		target, err := os.Readlink(src)
		if err != nil {
			return "", err
		}
		return symlinkTemp(target, dest)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	sfi, err := in.Stat()
	if err != nil {
		return "", err
	}

	f, err := createTemp(dest, sfi.Mode().Perm())
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	_, err = io.Copy(f, in)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, sfi.Mode().Perm())
	}
	if err == nil {
		err = os.Chtimes(tmp, sfi.ModTime(), sfi.ModTime())
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// moveTemp stages src for a move: a hardlink into dest's temp sibling
// when the filesystem allows it, falling back to a symlink-preserving
// copy (cross-device moves). Either way the source stays in place
// until the deferred unlink runs.
func moveTemp(src, dest string) (string, error) {
	if tmp, err := linkTemp(src, dest, false); err == nil {
		return tmp, nil
	}
	return copyTemp(src, dest, false)
}
