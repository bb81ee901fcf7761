package tty_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/oxij/kisstdlib/pkg/tty"
)

func tempOut(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readBack(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func TestPipeOutputStaysPlain(t *testing.T) {
	f := tempOut(t)
	w := tty.NewWriter(f)
	require.False(t, w.IsTerminal())

	w.Println("hello")
	w.Printf("%d files\n", 3)
	w.Colorln(termenv.ANSIGreen, "done")
	require.Equal(t, "hello\n3 files\ndone\n", readBack(t, f))
}

func TestStatusIsTerminalOnly(t *testing.T) {
	f := tempOut(t)
	w := tty.NewWriter(f)

	// On a pipe, transient status lines are suppressed entirely.
	w.Status("working %d%%", 50)
	w.ClearStatus()
	require.Equal(t, "", readBack(t, f))
}

func TestErrorlnWithoutColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	f := tempOut(t)
	w := tty.NewWriter(f)
	w.Errorln("it broke")
	require.Equal(t, "it broke\n", readBack(t, f))
}
