package atomicfs

import (
	"os"

	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/logging"
)

// Executor is the strategy a commit runs against: one method per
// planned call. The OS executor issues real syscalls; the Recorder
// appends textual records. Both see the exact same sequence.
type Executor interface {
	Fsync(path string) error
	Rename(src, dest string) error
	Replace(src, dest string) error
	FsyncWin(path string) error
	FsyncDir(dir string) error
	Unlink(path string) error
	Barrier() error
}

// apply dispatches one planned step to the executor, tagging any
// failure with the step and path that failed.
func apply(ex Executor, s Step) error {
	var err error
	switch s.Kind {
	case StepFsync:
		err = ex.Fsync(s.Path)
	case StepRename:
		err = ex.Rename(s.Src, s.Path)
	case StepReplace:
		err = ex.Replace(s.Src, s.Path)
	case StepFsyncWin:
		err = ex.FsyncWin(s.Path)
	case StepFsyncDir:
		err = ex.FsyncDir(s.Path)
	case StepUnlink:
		err = ex.Unlink(s.Path)
	case StepBarrier:
		err = ex.Barrier()
	default:
		return errors.Newf(errors.ErrInternal, "unknown step kind %d", s.Kind)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "%s failed", s.Kind).
			WithDetail("step", s.Kind.String()).
			WithDetail("path", s.Path)
	}
	return nil
}

// Record is one dry-run line: the call name followed by its paths,
// e.g. {"rename", "a.part", "a"} or {"barrier"}.
type Record []string

// Recorder is the dry-run Executor: it appends a Record per call and
// never touches the filesystem, so it cannot raise OS errors.
type Recorder struct {
	Records []Record
}

func (r *Recorder) Fsync(path string) error {
	r.Records = append(r.Records, Record{"fsync", path})
	return nil
}

func (r *Recorder) Rename(src, dest string) error {
	r.Records = append(r.Records, Record{"rename", src, dest})
	return nil
}

func (r *Recorder) Replace(src, dest string) error {
	r.Records = append(r.Records, Record{"replace", src, dest})
	return nil
}

func (r *Recorder) FsyncWin(path string) error {
	r.Records = append(r.Records, Record{"fsync_win", path})
	return nil
}

func (r *Recorder) FsyncDir(dir string) error {
	r.Records = append(r.Records, Record{"fsync_dir", dir})
	return nil
}

func (r *Recorder) Unlink(path string) error {
	r.Records = append(r.Records, Record{"unlink", path})
	return nil
}

func (r *Recorder) Barrier() error {
	r.Records = append(r.Records, Record{"barrier"})
	return nil
}

// osExecutor issues the real OS calls.
type osExecutor struct {
	caps Capabilities
}

// NewOSExecutor returns the live Executor for the given capabilities.
func NewOSExecutor(caps Capabilities) Executor {
	return &osExecutor{caps: caps}
}

var logger = logging.GetLogger("atomicfs")

// fsyncFile opens path and fsyncs it. Symlinks are skipped: they have
// no file contents of their own and cannot be opened without being
// followed; their durability comes from the directory fsync.
func fsyncFile(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		logger.Trace().Str("path", path).Msg("skipping fsync of symlink")
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (x *osExecutor) Fsync(path string) error {
	logger.Trace().Str("path", path).Msg("fsync")
	return fsyncFile(path)
}

func (x *osExecutor) Rename(src, dest string) error {
	logger.Trace().Str("src", src).Str("dest", dest).Msg("rename")
	return renameNoReplace(src, dest)
}

func (x *osExecutor) Replace(src, dest string) error {
	logger.Trace().Str("src", src).Str("dest", dest).Msg("replace")
	return os.Rename(src, dest)
}

func (x *osExecutor) FsyncWin(path string) error {
	if !x.caps.SyncAfterRename {
		return nil
	}
	logger.Trace().Str("path", path).Msg("fsync after rename")
	return fsyncFile(path)
}

func (x *osExecutor) FsyncDir(dir string) error {
	if !x.caps.CanSyncDir {
		return nil
	}
	logger.Trace().Str("dir", dir).Msg("fsync dir")
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	err = f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (x *osExecutor) Unlink(path string) error {
	logger.Trace().Str("path", path).Msg("unlink")
	return os.Remove(path)
}

// Barrier is a no-op for the OS executor: execution is already
// sequential, the preceding epoch's calls have all returned.
func (x *osExecutor) Barrier() error {
	return nil
}
