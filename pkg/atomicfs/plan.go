package atomicfs

import (
	"path/filepath"
	"sort"
)

// StepKind identifies one planned call.
type StepKind int

const (
	// StepFsync makes a staged temp file durable.
	StepFsync StepKind = iota
	// StepRename atomically installs a destination that must not exist.
	StepRename
	// StepReplace atomically installs a destination that may exist.
	StepReplace
	// StepFsyncWin re-syncs a freshly placed destination, on platforms
	// where rename alone does not make the directory entry durable.
	StepFsyncWin
	// StepFsyncDir makes a directory's entries durable.
	StepFsyncDir
	// StepUnlink removes a move source or an explicitly unlinked path.
	StepUnlink
	// StepBarrier separates two epochs; it issues no call of its own.
	StepBarrier
)

func (k StepKind) String() string {
	switch k {
	case StepFsync:
		return "fsync"
	case StepRename:
		return "rename"
	case StepReplace:
		return "replace"
	case StepFsyncWin:
		return "fsync_win"
	case StepFsyncDir:
		return "fsync_dir"
	case StepUnlink:
		return "unlink"
	case StepBarrier:
		return "barrier"
	}
	return "unknown"
}

// Step is one planned call. Path is the call's primary path; Src is the
// path being renamed away for StepRename and StepReplace.
type Step struct {
	Kind StepKind
	Src  string
	Path string
}

// Record renders the step the way the recording executor emits it.
func (s Step) Record() Record {
	switch s.Kind {
	case StepRename, StepReplace:
		return Record{s.Kind.String(), s.Src, s.Path}
	case StepBarrier:
		return Record{s.Kind.String()}
	default:
		return Record{s.Kind.String(), s.Path}
	}
}

// planEpoch lays out one epoch's fixed six-phase plan:
//
//  1. fsync every staged temp file (sorted; intra-phase order is free),
//  2. placement renames/replacements, in log order,
//  3. post-placement fsync of every destination (possibly a no-op,
//     kept so the plan's shape is uniform across platforms),
//  4. fsync of every distinct parent directory touched by phase 2,
//     destination directories first, each exactly once,
//  5. deferred unlinks, in log order,
//  6. fsync of every distinct parent directory touched by phase 5.
//
// A barrier step follows phase 2 when another epoch comes after this
// one; everything already placed must become durable before the next
// epoch's placements begin.
func planEpoch(e *epoch, withBarrier bool) []Step {
	var steps []Step

	// Phase 1: temp file fsyncs.
	var temps []string
	for _, op := range e.ops {
		if op.Temp != "" {
			temps = append(temps, op.Temp)
		}
	}
	sort.Strings(temps)
	for _, p := range temps {
		steps = append(steps, Step{Kind: StepFsync, Path: p})
	}

	// Phase 2: placements.
	for _, op := range e.ops {
		if !op.placed() {
			continue
		}
		src := op.Temp
		if op.Kind == OpRename {
			src = op.Src
		}
		kind := StepRename
		if op.Replace {
			kind = StepReplace
		}
		steps = append(steps, Step{Kind: kind, Src: src, Path: op.Dest})
	}

	if withBarrier {
		steps = append(steps, Step{Kind: StepBarrier})
	}

	// Phase 3: post-placement fsyncs.
	var dests []string
	for _, op := range e.ops {
		if op.placed() {
			dests = append(dests, op.Dest)
		}
	}
	sort.Strings(dests)
	for _, p := range dests {
		steps = append(steps, Step{Kind: StepFsyncWin, Path: p})
	}

	// Phase 4: parent directory fsyncs, destination directories before
	// the directories rename sources were moved out of.
	seen := make(map[string]struct{})
	var destDirs, srcDirs []string
	for _, op := range e.ops {
		if !op.placed() {
			continue
		}
		destDirs = appendDir(destDirs, seen, op.Dest)
	}
	for _, op := range e.ops {
		if op.Kind == OpRename {
			srcDirs = appendDir(srcDirs, seen, op.Src)
		}
	}
	sort.Strings(destDirs)
	sort.Strings(srcDirs)
	for _, dir := range append(destDirs, srcDirs...) {
		steps = append(steps, Step{Kind: StepFsyncDir, Path: dir})
	}

	// Phase 5: deferred unlinks.
	var unlinked []string
	for _, op := range e.ops {
		switch op.Kind {
		case OpMove:
			unlinked = append(unlinked, op.Src)
		case OpUnlink:
			unlinked = append(unlinked, op.Dest)
		}
	}
	for _, p := range unlinked {
		steps = append(steps, Step{Kind: StepUnlink, Path: p})
	}

	// Phase 6: the unlinks' parent directories. These changed after
	// phase 4 ran, so earlier syncs of the same directory do not count.
	seen = make(map[string]struct{})
	var unlinkDirs []string
	for _, p := range unlinked {
		unlinkDirs = appendDir(unlinkDirs, seen, p)
	}
	sort.Strings(unlinkDirs)
	for _, dir := range unlinkDirs {
		steps = append(steps, Step{Kind: StepFsyncDir, Path: dir})
	}

	return steps
}

func appendDir(dirs []string, seen map[string]struct{}, path string) []string {
	dir := filepath.Dir(path)
	if _, ok := seen[dir]; ok {
		return dirs
	}
	seen[dir] = struct{}{}
	return append(dirs, dir)
}

// Plan returns the ordered plan over all pending epochs. It only
// builds a data structure and cannot fail.
func (d *DeferredSync) Plan() []Step {
	var steps []Step
	for i, e := range d.epochs {
		steps = append(steps, planEpoch(e, i < len(d.epochs)-1)...)
	}
	return steps
}
