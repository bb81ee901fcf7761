// Package atomicfs applies batches of filesystem mutations - writes,
// renames, hardlinks, symlinks, copies, moves, removals - such that an
// interruption at any point leaves the filesystem consistent with some
// prefix of causally-independent mutations having happened: no source
// file is ever lost and no half-written destination is ever visible
// under its final name.
//
// Mutations are staged through sibling ".part" temp files and recorded
// in a DeferredSync log. Committing the log turns it into an ordered
// sequence of fsyncs, atomic renames/replacements, and directory
// fsyncs, batched per epoch to minimize synchronization barriers. A
// barrier is inserted automatically between operations that causally
// depend on each other (one reads a path another produces).
//
// Every logical operation also works without a DeferredSync, in which
// case it executes immediately as its own single-epoch commit.
//
// Commits run against an Executor strategy: the OS executor issues the
// real syscalls, while a Recorder produces the identical ordered plan
// as textual records without touching the filesystem. The two modes
// never diverge in ordering or call selection.
//
// A DeferredSync is a single-writer structure; concurrent mutation
// requires external serialization.
package atomicfs
