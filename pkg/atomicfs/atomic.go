package atomicfs

import (
	"os"

	"github.com/oxij/kisstdlib/pkg/errors"
)

// The Atomic* functions are the logical operation API. Each stages
// whatever it can immediately (temp siblings appear on disk at call
// time), then either appends to the given DeferredSync, or, when
// dsync is nil, runs as its own single-epoch commit on the spot.

// schedule hands op to dsync, or commits it immediately when no log
// was supplied.
func schedule(op Operation, dsync *DeferredSync) error {
	logger.Debug().
		Str("op", op.Kind.String()).
		Str("src", op.Src).
		Str("dest", op.Dest).
		Bool("deferred", dsync != nil).
		Msg("scheduling operation")
	if dsync != nil {
		dsync.append(op)
		return nil
	}
	d := NewDeferredSync()
	d.append(op)
	return d.Finish()
}

// stageErr classifies a temp staging failure: reading a path this log
// will only produce at commit time is a dependency violation, anything
// else is an OS failure.
func stageErr(err error, src, dest string, dsync *DeferredSync) error {
	if os.IsNotExist(err) && dsync != nil && dsync.hasPendingDest(src) {
		return errors.Wrapf(err, errors.ErrDependencyViolation,
			"%q is pending in this log and not yet on disk", src).
			WithDetail("src", src).WithDetail("dest", dest)
	}
	return errors.Wrapf(err, errors.ErrIOFailure, "staging %q failed", dest).
		WithDetail("src", src).WithDetail("dest", dest)
}

// AtomicWrite creates dest with the given bytes via a temp sibling.
func AtomicWrite(data []byte, dest string, dsync *DeferredSync) error {
	tmp, err := writeTemp(data, dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "staging %q failed", dest).
			WithDetail("dest", dest)
	}
	return schedule(Operation{Kind: OpWrite, Dest: dest, Temp: tmp}, dsync)
}

// AtomicRename moves src to dest at commit time. src must exist at a
// stable path already, or be the destination of an earlier operation
// in the same log (a barrier then orders the two).
func AtomicRename(src, dest string, replace bool, dsync *DeferredSync) error {
	if _, err := os.Lstat(src); err != nil {
		if dsync == nil || !dsync.hasPendingDest(src) {
			return errors.Wrapf(err, errors.ErrDependencyViolation,
				"rename source %q neither exists nor is pending", src).
				WithDetail("src", src).WithDetail("dest", dest)
		}
	}
	if err := ensureParent(dest); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "staging %q failed", dest).
			WithDetail("dest", dest)
	}
	return schedule(Operation{Kind: OpRename, Src: src, Dest: dest, Replace: replace}, dsync)
}

// AtomicLink hardlinks src at dest via a temp sibling. With
// followSymlinks a symlinked src is resolved; otherwise the symlink
// itself is linked.
func AtomicLink(src, dest string, replace, followSymlinks bool, dsync *DeferredSync) error {
	tmp, err := linkTemp(src, dest, followSymlinks)
	if err != nil {
		return stageErr(err, src, dest, dsync)
	}
	return schedule(Operation{Kind: OpLink, Src: src, Dest: dest, Temp: tmp, Replace: replace}, dsync)
}

// AtomicSymlink creates a symbolic link to target at dest via a temp
// sibling. target is not required to exist.
func AtomicSymlink(target, dest string, replace bool, dsync *DeferredSync) error {
	tmp, err := symlinkTemp(target, dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "staging %q failed", dest).
			WithDetail("target", target).WithDetail("dest", dest)
	}
	return schedule(Operation{Kind: OpSymlink, Src: target, Dest: dest, Temp: tmp, Replace: replace}, dsync)
}

// AtomicCopy duplicates src at dest via a temp sibling, keeping mode
// and mtime. Without followSymlinks a symlinked src becomes a fresh
// symlink to the same target.
func AtomicCopy(src, dest string, replace, followSymlinks bool, dsync *DeferredSync) error {
	tmp, err := copyTemp(src, dest, followSymlinks)
	if err != nil {
		return stageErr(err, src, dest, dsync)
	}
	return schedule(Operation{Kind: OpCopy, Src: src, Dest: dest, Temp: tmp, Replace: replace}, dsync)
}

// AtomicMove places src at dest durably, then removes src, deferred
// until dest and its directory are durable. A crash mid-move can leave
// the file at both paths, never at neither.
func AtomicMove(src, dest string, replace bool, dsync *DeferredSync) error {
	tmp, err := moveTemp(src, dest)
	if err != nil {
		return stageErr(err, src, dest, dsync)
	}
	return schedule(Operation{Kind: OpMove, Src: src, Dest: dest, Temp: tmp, Replace: replace}, dsync)
}

// AtomicUnlink removes path, scheduled after any pending operation it
// depends on.
func AtomicUnlink(path string, dsync *DeferredSync) error {
	if _, err := os.Lstat(path); err != nil {
		if dsync == nil || !dsync.hasPendingDest(path) {
			return errors.Wrapf(err, errors.ErrDependencyViolation,
				"unlink target %q neither exists nor is pending", path).
				WithDetail("path", path)
		}
	}
	return schedule(Operation{Kind: OpUnlink, Dest: path}, dsync)
}
