// Package describe produces a recursive deterministic textual
// description of filesystem trees: path, kind, optional mode and
// mtime, size and content hash, or link target, in sorted walk order.
// The first path encountered for a multiply-linked inode is taken as
// the "original", all others render as hardlink references. The output
// is stable, which makes it the verification surface for code that
// produces filesystem trees.
package describe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/paths"
	"github.com/oxij/kisstdlib/pkg/timex"
)

// Options selects what the description includes.
type Options struct {
	// ShowMode emits "mode NNN" tokens.
	ShowMode bool
	// ShowMtime emits "mtime [...]" tokens.
	ShowMtime bool
	// ShowSize emits "size N" tokens for files.
	ShowSize bool
	// HashLen truncates sha256 hex digests to this many characters;
	// zero keeps them whole.
	HashLen int
	// TimePrecision is the number of sub-second digits in mtimes.
	TimePrecision int
	// RelativeHardlinks renders hardlink originals relative to the
	// referencing entry ("=>"); otherwise they are rendered as full
	// walk paths ("==>").
	RelativeHardlinks bool
	// FollowSymlinks describes symlink targets instead of the links.
	FollowSymlinks bool
	// Numbers forces "N/" walk prefixes even for a single root.
	Numbers bool
	// Literal disables escaping of paths with special characters.
	Literal bool
}

// DefaultOptions matches the describe-subtree defaults: sizes on,
// whole hashes, full walk paths for hardlinks.
func DefaultOptions() Options {
	return Options{ShowSize: true}
}

// Entry is one described path as a token list; joining it with spaces
// yields the printable line.
type Entry []string

func (e Entry) String() string {
	return strings.Join(e, " ")
}

// Path describes a single tree rooted at root.
func Path(root string, opts Options) ([]Entry, error) {
	return Walks([]string{root}, opts)
}

// Walks describes several trees in one pass; with more than one root
// (or Numbers set) every path is prefixed with its root's index, and
// hardlink detection spans all of them.
func Walks(roots []string, opts Options) ([]Entry, error) {
	d := &describer{opts: opts, seen: make(map[inodeKey]string)}
	numbered := opts.Numbers || len(roots) > 1

	var out []Entry
	for i, root := range roots {
		prefix := ""
		if numbered {
			prefix = strconv.Itoa(i) + "/"
		}
		walkOpts := paths.WalkOptions{
			IncludeDirectories: true,
			FollowSymlinks:     opts.FollowSymlinks,
		}
		err := paths.WalkOrderly(root, walkOpts, func(path string, info os.FileInfo) error {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			entry, err := d.entry(prefix+rel, path, info)
			if err != nil {
				return err
			}
			out = append(out, entry)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrIOFailure, "describing %q failed", root)
		}
	}
	return out, nil
}

type describer struct {
	opts Options
	seen map[inodeKey]string
}

func (d *describer) entry(name, path string, info os.FileInfo) (Entry, error) {
	e := Entry{d.escape(name)}

	if !info.IsDir() {
		if key, nlink, ok := inodeOf(info); ok && nlink > 1 {
			if orig, dup := d.seen[key]; dup {
				return append(e, d.refTokens(name, orig)...), nil
			}
			d.seen[key] = name
		}
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		e = append(e, "dir")
		e = d.stamp(e, info)
	case mode&os.ModeSymlink != 0:
		e = append(e, "sym")
		e = d.stamp(e, info)
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		arrow := "->"
		if filepath.IsAbs(target) {
			arrow = "/->"
		}
		e = append(e, arrow, d.escape(target))
	case mode.IsRegular():
		e = append(e, "reg")
		e = d.stamp(e, info)
		if d.opts.ShowSize {
			e = append(e, "size", strconv.FormatInt(info.Size(), 10))
		}
		hash, err := d.hashFile(path)
		if err != nil {
			return nil, err
		}
		e = append(e, "sha256", hash)
	default:
		e = append(e, "???")
		e = d.stamp(e, info)
		if d.opts.ShowSize {
			e = append(e, "size", strconv.FormatInt(info.Size(), 10))
		}
	}
	return e, nil
}

// refTokens renders a path whose inode was already described.
func (d *describer) refTokens(name, orig string) Entry {
	if d.opts.RelativeHardlinks {
		rel, err := filepath.Rel(filepath.Dir(name), orig)
		if err == nil {
			return Entry{"ref", "=>", d.escape(rel)}
		}
	}
	return Entry{"ref", "==>", d.escape(orig)}
}

// stamp appends the optional mode and mtime tokens.
func (d *describer) stamp(e Entry, info os.FileInfo) Entry {
	if d.opts.ShowMode {
		e = append(e, "mode", strconv.FormatUint(uint64(info.Mode().Perm()), 8))
	}
	if d.opts.ShowMtime {
		ts := timex.FromTime(info.ModTime())
		e = append(e, "mtime", "["+ts.Format(d.opts.TimePrecision, false)+"]")
	}
	return e
}

func (d *describer) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	digest := hex.EncodeToString(h.Sum(nil))
	if d.opts.HashLen > 0 && d.opts.HashLen < len(digest) {
		digest = digest[:d.opts.HashLen]
	}
	return digest, nil
}

// escape quotes strings that would break the line-oriented output.
func (d *describer) escape(s string) string {
	if d.opts.Literal {
		return s
	}
	for _, r := range s {
		if r == ' ' || r == '"' || r == '\\' || !strconv.IsPrint(r) {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}
