package atomicfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxij/kisstdlib/pkg/atomicfs"
	"github.com/oxij/kisstdlib/pkg/errors"
)

func TestDryRunIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("one"), filepath.Join(tmp, "one"), d))
	require.NoError(t, atomicfs.AtomicRename(filepath.Join(tmp, "one"), filepath.Join(tmp, "two"), false, d))

	first := d.DryRun()
	second := d.DryRun()
	require.Equal(t, first, second)
	require.Equal(t, 2, d.Len())
	require.Equal(t, 2, d.Epochs())

	// The dry run must also leave the tree alone.
	_, err := os.Lstat(filepath.Join(tmp, "one"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Lstat(filepath.Join(tmp, "one.part"))
	require.NoError(t, err)
}

func TestCopyIsIndependent(t *testing.T) {
	tmp := t.TempDir()
	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("one"), filepath.Join(tmp, "one"), d))

	c := d.Copy()
	require.NoError(t, atomicfs.AtomicWrite([]byte("two"), filepath.Join(tmp, "two"), c))
	require.Equal(t, 1, d.Len())
	require.Equal(t, 2, c.Len())
	require.NotEqual(t, d.DryRun(), c.DryRun())
}

func TestCommitRecorderMatchesDryRun(t *testing.T) {
	tmp := t.TempDir()
	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("one"), filepath.Join(tmp, "one"), d))
	require.NoError(t, atomicfs.AtomicRename(filepath.Join(tmp, "one"), filepath.Join(tmp, "two"), false, d))

	expected := d.DryRun()
	rec := &atomicfs.Recorder{}
	require.NoError(t, d.Commit(rec))
	require.Equal(t, expected, rec.Records)
	require.Equal(t, 0, d.Len())
}

// failOnUnlink runs a real commit but injects a failure at the first
// unlink, simulating a crash after placement but before cleanup.
type failOnUnlink struct {
	atomicfs.Executor
	failed bool
}

func (x *failOnUnlink) Unlink(path string) error {
	x.failed = true
	return os.ErrPermission
}

func TestMoveNeverLosesTheFile(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicMove(src, dest, false, d))

	ex := &failOnUnlink{Executor: atomicfs.NewOSExecutor(atomicfs.DefaultCapabilities())}
	err := d.Commit(ex)
	require.Error(t, err)
	require.True(t, ex.failed)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIOFailure))

	// Interrupted after placement: the file exists at both paths,
	// never at neither, and the epoch stays pending for inspection.
	_, err = os.Lstat(src)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
	require.Equal(t, 1, d.Epochs())
}

// failFirstFsync fails the first fsync it sees, before anything has
// been placed; the log must then be retryable as-is.
type failFirstFsync struct {
	atomicfs.Executor
	failed bool
}

func (x *failFirstFsync) Fsync(path string) error {
	if !x.failed {
		x.failed = true
		return os.ErrPermission
	}
	return x.Executor.Fsync(path)
}

func TestCommitRetryAfterEarlyFailure(t *testing.T) {
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "out")

	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("payload"), dest, d))

	ex := &failFirstFsync{Executor: atomicfs.NewOSExecutor(atomicfs.DefaultCapabilities())}
	require.Error(t, d.Commit(ex))
	require.Equal(t, 1, d.Epochs())
	_, err := os.Lstat(dest)
	require.True(t, os.IsNotExist(err))

	// Nothing was placed, so the same log commits cleanly.
	require.NoError(t, d.Finish())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestFinishEmptyLog(t *testing.T) {
	d := atomicfs.NewDeferredSync()
	err := d.Finish()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyCommitted))

	tmp := t.TempDir()
	require.NoError(t, atomicfs.AtomicWrite([]byte("x"), filepath.Join(tmp, "x"), d))
	require.NoError(t, d.Finish())
	err = d.Finish()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyCommitted))
}

func TestStagingFromPendingDestination(t *testing.T) {
	tmp := t.TempDir()
	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("x"), filepath.Join(tmp, "x"), d))

	// Renaming a pending destination is fine: the rename happens at
	// commit time, after a barrier.
	require.NoError(t, atomicfs.AtomicRename(filepath.Join(tmp, "x"), filepath.Join(tmp, "y"), false, d))
	require.Equal(t, 2, d.Epochs())

	// Linking or copying one is not: those stage immediately, and the
	// pending destination has no content on disk yet.
	err := atomicfs.AtomicLink(filepath.Join(tmp, "y"), filepath.Join(tmp, "z"), false, false, d)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyViolation))

	err = atomicfs.AtomicCopy(filepath.Join(tmp, "y"), filepath.Join(tmp, "z"), false, false, d)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyViolation))

	err = atomicfs.AtomicMove(filepath.Join(tmp, "y"), filepath.Join(tmp, "z"), false, d)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyViolation))

	// Unlinking a pending destination defers fine.
	require.NoError(t, atomicfs.AtomicUnlink(filepath.Join(tmp, "y"), d))
	require.Equal(t, 3, d.Epochs())

	require.NoError(t, d.Finish())
	_, serr := os.Lstat(filepath.Join(tmp, "x"))
	require.True(t, os.IsNotExist(serr))
	_, serr = os.Lstat(filepath.Join(tmp, "y"))
	require.True(t, os.IsNotExist(serr))
}

func TestMissingSources(t *testing.T) {
	tmp := t.TempDir()
	missing := filepath.Join(tmp, "missing")

	err := atomicfs.AtomicRename(missing, filepath.Join(tmp, "dest"), false, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyViolation))

	err = atomicfs.AtomicUnlink(missing, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyViolation))

	err = atomicfs.AtomicCopy(missing, filepath.Join(tmp, "dest"), false, false, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIOFailure))
}

func TestRenameRefusesToClobber(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	require.NoError(t, os.WriteFile(src, []byte("src"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("dest"), 0o644))

	err := atomicfs.AtomicRename(src, dest, false, nil)
	require.Error(t, err)
	data, rerr := os.ReadFile(dest)
	require.NoError(t, rerr)
	require.Equal(t, []byte("dest"), data)

	// With replace set the same rename goes through.
	require.NoError(t, atomicfs.AtomicRename(src, dest, true, nil))
	data, rerr = os.ReadFile(dest)
	require.NoError(t, rerr)
	require.Equal(t, []byte("src"), data)
}

func TestWriteRefusesLeftoverTemp(t *testing.T) {
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "out")
	require.NoError(t, os.WriteFile(atomicfs.TempPath(dest), []byte("leftover"), 0o644))

	err := atomicfs.AtomicWrite([]byte("fresh"), dest, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIOFailure))
}

func TestUnlinkDirSyncedAfterUnlink(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "victim")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	d := atomicfs.NewDeferredSync()
	require.NoError(t, atomicfs.AtomicWrite([]byte("x"), filepath.Join(tmp, "kept"), d))
	require.NoError(t, atomicfs.AtomicUnlink(target, d))

	// The directory changes twice: once at placement, once at unlink.
	// Both changes get their own sync even though it is the same
	// directory.
	records := d.DryRun()
	dirSyncs := 0
	for _, rec := range records {
		if rec[0] == "fsync_dir" && rec[1] == tmp {
			dirSyncs++
		}
	}
	require.Equal(t, 2, dirSyncs)
	require.Equal(t, "unlink", records[len(records)-2][0])
	require.Equal(t, "fsync_dir", records[len(records)-1][0])
}
