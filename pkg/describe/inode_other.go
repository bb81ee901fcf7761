//go:build !unix

package describe

import "os"

type inodeKey struct {
	dev uint64
	ino uint64
}

// inodeOf reports no inode identity on platforms without one; every
// file then renders as an original.
func inodeOf(info os.FileInfo) (inodeKey, uint64, bool) {
	return inodeKey{}, 0, false
}
