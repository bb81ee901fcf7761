package atomicfs

import (
	"github.com/oxij/kisstdlib/pkg/errors"
)

// Commit executes the pending plan against ex, epoch by epoch in log
// order. Each fully executed epoch is removed from the log before the
// next begins; on failure the current epoch (possibly partially
// applied, never destructively: prior epochs are already durable) and
// its successors remain pending for inspection or retry.
func (d *DeferredSync) Commit(ex Executor) error {
	for len(d.epochs) > 0 {
		steps := planEpoch(d.epochs[0], len(d.epochs) > 1)
		for _, s := range steps {
			if err := apply(ex, s); err != nil {
				return err
			}
		}
		d.epochs = d.epochs[1:]
	}
	return nil
}

// DryRun renders the pending plan as records, in exactly the order a
// live commit would issue the calls, barriers included. It performs no
// I/O and leaves the log untouched, so consecutive dry runs of an
// unmodified log are identical.
func (d *DeferredSync) DryRun() []Record {
	rec := &Recorder{}
	for _, s := range d.Plan() {
		_ = apply(rec, s) // the recorder cannot fail
	}
	return rec.Records
}

// Finish commits the log live and clears it. Calling Finish with
// nothing pending reports ErrAlreadyCommitted.
func (d *DeferredSync) Finish() error {
	if len(d.epochs) == 0 {
		return errors.New(errors.ErrAlreadyCommitted, "deferred sync has nothing pending")
	}
	return d.Commit(NewOSExecutor(d.caps))
}
