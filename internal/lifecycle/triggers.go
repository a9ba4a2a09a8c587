package lifecycle

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Install registers the signal trigger: on SIGINT or SIGTERM the shutdown
// sequence runs and the process exits with status 0. A signal arriving while
// the sequence is already running exits at once. Calling Install more than
// once has no further effect.
func (c *Coordinator) Install() {
	c.installOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, c.signals...)

		c.mu.Lock()
		c.sigCh = ch
		c.mu.Unlock()

		go c.watchSignals(ch)

		c.log.Info("shutdown coordinator installed", slog.Int("signal_count", len(c.signals)))
	})
}

// Uninstall stops signal delivery to the coordinator.
func (c *Coordinator) Uninstall() {
	c.mu.Lock()
	ch := c.sigCh
	c.sigCh = nil
	c.mu.Unlock()

	if ch == nil {
		return
	}

	signal.Stop(ch)
	close(ch)
}

// watchSignals handles every delivery until Uninstall. Each signal is
// handled on its own goroutine so a later one is seen while an earlier one
// is still running the sequence.
func (c *Coordinator) watchSignals(ch <-chan os.Signal) {
	for sig := range ch {
		go c.handleSignal(sig)
	}
}

// handleSignal runs the sequence and exits 0. If the sequence is already
// running elsewhere it exits 0 straight away.
func (c *Coordinator) handleSignal(sig os.Signal) {
	log := c.log.With(slog.String("signal", signalName(sig)))
	log.Info("received signal, initiating graceful shutdown")

	if !c.execute() {
		log.Warn("shutdown already in progress, exiting now")
	}
	c.exit(0)
}

// ExitHook is the normal-exit trigger. Defer it directly in main:
//
//	defer coord.ExitHook()
//
// A panic unwinding through main is recovered, the shutdown sequence runs,
// and the panic is raised again. If another trigger already started the
// sequence, ExitHook waits for it to finish, unless it runs inside a hook.
func (c *Coordinator) ExitHook() {
	r := recover()
	if r != nil {
		c.log.Error("panic reached exit hook, running shutdown", slog.Any("panic", r))
	}

	c.Execute()
	c.Wait()

	if r != nil {
		panic(r)
	}
}

// Exit runs the shutdown sequence and terminates the process with code.
// Use it instead of os.Exit, which skips deferred calls. Called from within
// a hook it exits without waiting for the rest of the sequence.
func (c *Coordinator) Exit(code int) {
	c.Execute()
	c.Wait()

	c.exit(code)
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return sig.String()
	}
}
