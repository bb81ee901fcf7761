//go:build unix

package describe

import (
	"os"
	"syscall"
)

type inodeKey struct {
	dev uint64
	ino uint64
}

// inodeOf extracts the device/inode identity and link count, when the
// platform exposes them.
func inodeOf(info os.FileInfo) (inodeKey, uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeKey{}, 0, false
	}
	return inodeKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}, uint64(st.Nlink), true
}
