package atomicfs

import "runtime"

// Capabilities describes what the platform's rename gives us for free.
// They are resolved once per DeferredSync so the planner's phase
// structure stays platform-independent.
type Capabilities struct {
	// SyncAfterRename is set when a freshly renamed destination must be
	// fsynced again for its directory entry to become durable. The
	// fsync_win phase is always planned; this decides whether it issues
	// a real call.
	SyncAfterRename bool

	// CanSyncDir is set when directories can be opened and fsynced.
	CanSyncDir bool
}

// DefaultCapabilities resolves the capabilities for the running
// platform. Windows cannot fsync directories and instead needs the
// post-rename file fsync; everything else works the POSIX way.
func DefaultCapabilities() Capabilities {
	if runtime.GOOS == "windows" {
		return Capabilities{SyncAfterRename: true, CanSyncDir: false}
	}
	return Capabilities{SyncAfterRename: false, CanSyncDir: true}
}
