package describe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxij/kisstdlib/pkg/describe"
)

func lines(t *testing.T, entries []describe.Entry) [][]string {
	t.Helper()
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string(e))
	}
	return out
}

func TestPathBasics(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sub", "data"), []byte("test a"), 0o644))
	require.NoError(t, os.Symlink("sub/data", filepath.Join(tmp, "link")))
	require.NoError(t, os.Symlink("/etc", filepath.Join(tmp, "abs")))

	opts := describe.DefaultOptions()
	opts.HashLen = 8
	entries, err := describe.Path(tmp, opts)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{".", "dir"},
		{"abs", "sym", "/->", "/etc"},
		{"link", "sym", "->", "sub/data"},
		{"sub", "dir"},
		{"sub/data", "reg", "size", "6", "sha256", "1136b2eb"},
	}, lines(t, entries))
}

func TestHardlinksRenderAsRefs(t *testing.T) {
	tmp := t.TempDir()
	orig := filepath.Join(tmp, "a", "orig")
	require.NoError(t, os.MkdirAll(filepath.Dir(orig), 0o755))
	require.NoError(t, os.WriteFile(orig, []byte("test b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "b"), 0o755))
	require.NoError(t, os.Link(orig, filepath.Join(tmp, "b", "dup")))

	opts := describe.DefaultOptions()
	opts.HashLen = 8
	entries, err := describe.Path(tmp, opts)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{".", "dir"},
		{"a", "dir"},
		{"a/orig", "reg", "size", "6", "sha256", "6346935e"},
		{"b", "dir"},
		{"b/dup", "ref", "==>", "a/orig"},
	}, lines(t, entries))

	opts.RelativeHardlinks = true
	entries, err = describe.Path(tmp, opts)
	require.NoError(t, err)
	require.Equal(t, []string{"b/dup", "ref", "=>", "../a/orig"}, []string(entries[4]))
}

func TestWalksNumbering(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"one", "two"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tmp, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(tmp, name, "f"), []byte("test c"), 0o644))
	}

	opts := describe.DefaultOptions()
	opts.HashLen = 8
	entries, err := describe.Walks([]string{filepath.Join(tmp, "one"), filepath.Join(tmp, "two")}, opts)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"0/.", "dir"},
		{"0/f", "reg", "size", "6", "sha256", "806b51ad"},
		{"1/.", "dir"},
		{"1/f", "reg", "size", "6", "sha256", "806b51ad"},
	}, lines(t, entries))

	// A single root gets prefixes only when asked.
	single, err := describe.Path(filepath.Join(tmp, "one"), opts)
	require.NoError(t, err)
	require.Equal(t, ".", single[0][0])

	opts.Numbers = true
	single, err = describe.Path(filepath.Join(tmp, "one"), opts)
	require.NoError(t, err)
	require.Equal(t, "0/.", single[0][0])
}

func TestModeMtimeAndEscaping(t *testing.T) {
	tmp := t.TempDir()
	weird := filepath.Join(tmp, "with space")
	require.NoError(t, os.WriteFile(weird, []byte("x"), 0o600))

	opts := describe.DefaultOptions()
	opts.ShowMode = true
	opts.ShowMtime = true
	opts.ShowSize = false
	opts.HashLen = 4
	entries, err := describe.Path(tmp, opts)
	require.NoError(t, err)

	e := entries[1]
	require.Equal(t, `"with space"`, e[0])
	require.Equal(t, "reg", e[1])
	require.Equal(t, "mode", e[2])
	require.Equal(t, "600", e[3])
	require.Equal(t, "mtime", e[4])
	require.Len(t, e, 8)
	require.Len(t, e[7], 4)

	opts.Literal = true
	entries, err = describe.Path(tmp, opts)
	require.NoError(t, err)
	require.Equal(t, "with space", entries[1][0])
}

func TestFollowSymlinks(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "data"), []byte("test a"), 0o644))
	require.NoError(t, os.Symlink("data", filepath.Join(tmp, "link")))

	opts := describe.DefaultOptions()
	opts.HashLen = 8
	opts.FollowSymlinks = true
	entries, err := describe.Path(tmp, opts)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{".", "dir"},
		{"data", "reg", "size", "6", "sha256", "1136b2eb"},
		{"link", "reg", "size", "6", "sha256", "1136b2eb"},
	}, lines(t, entries))
}
