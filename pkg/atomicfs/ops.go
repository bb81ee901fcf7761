package atomicfs

// OpKind identifies the logical mutation an Operation describes.
type OpKind int

const (
	// OpWrite creates a file from bytes staged in a temp sibling.
	OpWrite OpKind = iota
	// OpRename moves an existing file to a new path at commit time.
	OpRename
	// OpLink hardlinks an existing file, staged via a temp sibling.
	OpLink
	// OpSymlink creates a symbolic link, staged via a temp sibling.
	OpSymlink
	// OpCopy duplicates a file or symlink, staged via a temp sibling.
	OpCopy
	// OpMove is a durable copy/link to Dest plus a deferred removal of Src.
	OpMove
	// OpUnlink removes a path after everything it depends on is durable.
	OpUnlink
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "write"
	case OpRename:
		return "rename"
	case OpLink:
		return "link"
	case OpSymlink:
		return "symlink"
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	case OpUnlink:
		return "unlink"
	}
	return "unknown"
}

// Operation is an immutable description of one logical mutation.
//
// Dest is the final destination (or, for OpUnlink, the path being
// removed). Src is the path being consumed: the rename source for
// OpRename, the link/copy source for OpLink/OpCopy/OpMove, and the
// link target text for OpSymlink. Temp is the already-materialized
// sibling temp file for staged kinds, empty for OpRename and OpUnlink.
type Operation struct {
	Kind    OpKind
	Src     string
	Dest    string
	Temp    string
	Replace bool
}

// readPath returns the on-disk path this operation consumes, or "" if
// it consumes none. A symlink's target text is not a read: the target
// is not required to exist.
func (op Operation) readPath() string {
	switch op.Kind {
	case OpRename, OpLink, OpCopy, OpMove:
		return op.Src
	case OpUnlink:
		return op.Dest
	}
	return ""
}

// placed reports whether the operation installs a destination entry
// during the placement phase of a commit.
func (op Operation) placed() bool {
	return op.Kind != OpUnlink
}

// epoch is a maximal run of operations between two barriers, executed
// as one ordered six-phase unit.
type epoch struct {
	ops []Operation

	// dests indexes the final destinations produced by this epoch,
	// unlinks the paths its deferred removals will consume. Both back
	// the dependency rule in needBarrier.
	dests   map[string]struct{}
	unlinks map[string]struct{}
}

func newEpoch() *epoch {
	return &epoch{
		dests:   make(map[string]struct{}),
		unlinks: make(map[string]struct{}),
	}
}

func (e *epoch) add(op Operation) {
	e.ops = append(e.ops, op)
	if op.placed() {
		e.dests[op.Dest] = struct{}{}
	}
	switch op.Kind {
	case OpMove:
		e.unlinks[op.Src] = struct{}{}
	case OpUnlink:
		e.unlinks[op.Dest] = struct{}{}
	}
}

func (e *epoch) clone() *epoch {
	c := newEpoch()
	c.ops = append(c.ops, e.ops...)
	for k := range e.dests {
		c.dests[k] = struct{}{}
	}
	for k := range e.unlinks {
		c.unlinks[k] = struct{}{}
	}
	return c
}

// needBarrier decides whether op must be separated from the epoch by a
// barrier: it fires when op reads a path the epoch produces, or when op
// produces a path the epoch's deferred removals would delete.
func (e *epoch) needBarrier(op Operation) bool {
	if rp := op.readPath(); rp != "" {
		if _, ok := e.dests[rp]; ok {
			return true
		}
	}
	if op.placed() {
		if _, ok := e.unlinks[op.Dest]; ok {
			return true
		}
	}
	return false
}

// DeferredSync is an append-only log of pending operations, split into
// epochs at barriers. It is exclusively owned: Copy yields an
// independent log sharing no mutable state with the original.
type DeferredSync struct {
	caps   Capabilities
	epochs []*epoch
}

// NewDeferredSync returns an empty log with platform-default
// durability capabilities.
func NewDeferredSync() *DeferredSync {
	return NewDeferredSyncWith(DefaultCapabilities())
}

// NewDeferredSyncWith returns an empty log with explicit capabilities.
func NewDeferredSyncWith(caps Capabilities) *DeferredSync {
	return &DeferredSync{caps: caps}
}

// append adds op to the log, opening a new epoch first if the
// dependency rule fires against the currently open epoch. It performs
// no I/O and cannot fail.
func (d *DeferredSync) append(op Operation) {
	var open *epoch
	if n := len(d.epochs); n > 0 {
		open = d.epochs[n-1]
	}
	if open == nil || open.needBarrier(op) {
		open = newEpoch()
		d.epochs = append(d.epochs, open)
	}
	open.add(op)
}

// hasPendingDest reports whether path is produced as a destination by
// any epoch still pending in the log.
func (d *DeferredSync) hasPendingDest(path string) bool {
	for _, e := range d.epochs {
		if _, ok := e.dests[path]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of pending operations.
func (d *DeferredSync) Len() int {
	n := 0
	for _, e := range d.epochs {
		n += len(e.ops)
	}
	return n
}

// Epochs returns the number of pending epochs.
func (d *DeferredSync) Epochs() int {
	return len(d.epochs)
}

// Pending returns the pending operations in log order, with barriers
// implied between epochs. The returned slice is a copy.
func (d *DeferredSync) Pending() []Operation {
	var ops []Operation
	for _, e := range d.epochs {
		ops = append(ops, e.ops...)
	}
	return ops
}

// Copy returns a structurally identical, independent log.
func (d *DeferredSync) Copy() *DeferredSync {
	c := &DeferredSync{caps: d.caps}
	for _, e := range d.epochs {
		c.epochs = append(c.epochs, e.clone())
	}
	return c
}
