// Package signalx delays interrupt signals around critical sections.
// Inside a protected section SIGINT and SIGTERM are recorded instead
// of acted upon; the section runs to completion and the pending
// interrupt is reported when it ends. A second signal while one is
// already pending terminates the process immediately, so an impatient
// user always has a way out.
package signalx

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/logging"
)

var logger = logging.GetLogger("signalx")

// ErrInterrupted is the code carried by errors reporting a delayed
// interrupt.
const ErrInterrupted = errors.ErrorCode("INTERRUPTED")

// Interrupted returns the error a finished critical section reports
// when a signal arrived while it ran.
func Interrupted(sig os.Signal) error {
	return errors.New(ErrInterrupted, "interrupted by "+sig.String()).
		WithDetail("signal", sig.String())
}

// Gentle intercepts SIGINT and SIGTERM for the life of the process
// part that needs protecting.
type Gentle struct {
	mu      sync.Mutex
	ch      chan os.Signal
	done    chan struct{}
	pending os.Signal
	count   int
	forced  bool
}

// Notify starts intercepting SIGINT and SIGTERM. Call Stop to restore
// the default behavior.
func Notify() *Gentle {
	g := &Gentle{
		ch:   make(chan os.Signal, 8),
		done: make(chan struct{}),
	}
	signal.Notify(g.ch, syscall.SIGINT, syscall.SIGTERM)
	go g.watch()
	return g
}

func (g *Gentle) watch() {
	for {
		select {
		case sig := <-g.ch:
			g.mu.Lock()
			g.count++
			if g.pending == nil {
				g.pending = sig
			}
			count := g.count
			forced := g.forced
			g.mu.Unlock()
			if count == 1 {
				logger.Warn().Str("signal", sig.String()).Msg("deferring interrupt, repeat to force")
			} else if forced {
				logger.Error().Str("signal", sig.String()).Msg("forced interrupt")
				signal.Stop(g.ch)
				os.Exit(128 + signalNumber(sig))
			}
		case <-g.done:
			return
		}
	}
}

// Stop restores the default signal behavior. A still-pending interrupt
// is returned so the caller can act on it.
func (g *Gentle) Stop() error {
	signal.Stop(g.ch)
	close(g.done)
	return g.take()
}

// Pending reports whether an interrupt arrived and was deferred.
func (g *Gentle) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// take clears and returns the pending interrupt, if any.
func (g *Gentle) take() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	sig := g.pending
	g.pending = nil
	g.count = 0
	return Interrupted(sig)
}

// Protect runs fn with interrupts deferred. When fn returns, a signal
// received in the meantime is reported as an ErrInterrupted error; an
// error from fn itself takes precedence. A repeated signal while fn
// runs kills the process.
func (g *Gentle) Protect(fn func() error) error {
	g.mu.Lock()
	g.forced = true
	g.mu.Unlock()
	err := fn()
	g.mu.Lock()
	g.forced = false
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return g.take()
}

// Run is the one-shot form: intercept, run fn protected, restore.
func Run(fn func() error) error {
	g := Notify()
	err := g.Protect(fn)
	if stopErr := g.Stop(); err == nil {
		err = stopErr
	}
	return err
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 1
}
