//go:build linux

package atomicfs

import "golang.org/x/sys/unix"

// renameNoReplace renames src to dest, failing with EEXIST if dest
// already exists. RENAME_NOREPLACE makes the existence check and the
// rename one atomic syscall.
func renameNoReplace(src, dest string) error {
	return unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dest, unix.RENAME_NOREPLACE)
}

// linkFollow hardlinks src to dest, resolving src first when it is a
// symlink.
func linkFollow(src, dest string) error {
	return unix.Linkat(unix.AT_FDCWD, src, unix.AT_FDCWD, dest, unix.AT_SYMLINK_FOLLOW)
}
