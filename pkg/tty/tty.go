// Package tty writes lines to a terminal or a pipe, coloring and
// overwriting status lines only when the destination actually is a
// terminal that supports it.
package tty

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Writer wraps an output file with terminal capability detection.
type Writer struct {
	out     *os.File
	profile termenv.Profile
	tty     bool
}

// NewWriter detects the capabilities of out. NO_COLOR and non-terminal
// destinations disable all styling.
func NewWriter(out *os.File) *Writer {
	w := &Writer{out: out, profile: termenv.Ascii}
	if os.Getenv("NO_COLOR") != "" {
		return w
	}
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return w
	}
	w.tty = true
	w.profile = termenv.ColorProfile()
	return w
}

// IsTerminal reports whether the destination is an interactive
// terminal.
func (w *Writer) IsTerminal() bool {
	return w.tty
}

// Println writes a plain line.
func (w *Writer) Println(a ...any) {
	fmt.Fprintln(w.out, a...)
}

// Printf writes plain formatted text.
func (w *Writer) Printf(format string, a ...any) {
	fmt.Fprintf(w.out, format, a...)
}

// Colorln writes a line in the given ANSI color when the destination
// supports it, plain otherwise.
func (w *Writer) Colorln(color termenv.ANSIColor, a ...any) {
	s := fmt.Sprint(a...)
	if w.profile != termenv.Ascii {
		s = termenv.String(s).Foreground(w.profile.Convert(color)).String()
	}
	fmt.Fprintln(w.out, s)
}

// Errorln writes an error line in red.
func (w *Writer) Errorln(a ...any) {
	w.Colorln(termenv.ANSIRed, a...)
}

// Status overwrites the current line with a transient message on a
// terminal; on a pipe it does nothing, keeping the output clean.
func (w *Writer) Status(format string, a ...any) {
	if !w.tty {
		return
	}
	fmt.Fprintf(w.out, "\r\033[K"+format, a...)
}

// ClearStatus erases a line written by Status.
func (w *Writer) ClearStatus() {
	if !w.tty {
		return
	}
	fmt.Fprint(w.out, "\r\033[K")
}
