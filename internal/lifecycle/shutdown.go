// Package lifecycle coordinates process teardown: prioritized shutdown hooks,
// the mandatory close of core resources, and the exit and signal paths that
// trigger them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Proton-105/usermgmt/internal/errors"
)

// ErrHookTimeout is reported for a hook that did not return within the
// configured hook timeout.
var ErrHookTimeout = errors.New("shutdown hook timed out")

// State is the coordinator lifecycle state.
type State int32

const (
	// StateArmed means no shutdown has been triggered yet.
	StateArmed State = iota
	// StateShuttingDown is terminal: the sequence has started and never runs again.
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Reporter receives cleanup failures, e.g. to forward them to Sentry.
type Reporter interface {
	Report(ctx context.Context, err error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHookTimeout bounds every hook and resource close by d. Zero means no
// bound: a hook that never returns blocks shutdown.
func WithHookTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.hookTimeout = d
	}
}

// WithReporter sets the reporter notified of each hook or resource failure.
func WithReporter(r Reporter) Option {
	return func(c *Coordinator) {
		c.reporter = r
	}
}

// WithExitFunc replaces os.Exit on the signal and Exit paths.
func WithExitFunc(fn func(code int)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.exit = fn
		}
	}
}

// WithSignals overrides the signals that trigger shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(c *Coordinator) {
		if len(sigs) > 0 {
			c.signals = sigs
		}
	}
}

// WithResources seeds the core resource set.
func WithResources(resources map[string]Resource) Option {
	return func(c *Coordinator) {
		for name, r := range resources {
			if r != nil && name != "" {
				c.resources[name] = r
			}
		}
	}
}

// Coordinator runs registered hooks in ascending priority order and then
// closes core resources, exactly once per process.
type Coordinator struct {
	mu        sync.Mutex
	entries   []hookEntry
	resources map[string]Resource

	state atomic.Int32
	done  chan struct{}

	log         *slog.Logger
	reporter    Reporter
	hookTimeout time.Duration
	exit        func(int)
	signals     []os.Signal

	installOnce sync.Once
	sigCh       chan os.Signal

	// ids of the goroutines running the sequence or one of its hooks
	sequenceGoroutines sync.Map
}

// NewCoordinator constructs a new Coordinator in the armed state.
func NewCoordinator(log *slog.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = slog.Default()
	}

	c := &Coordinator{
		resources: make(map[string]Resource),
		done:      make(chan struct{}),
		log:       log,
		exit:      os.Exit,
		signals:   []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register adds fn under name with the given priority. Lower priorities run
// earlier; equal priorities keep registration order. An empty name is
// derived from the function. Nil functions are ignored.
func (c *Coordinator) Register(fn func(), name string, priority int) {
	if fn == nil {
		return
	}
	if name == "" {
		name = funcName(fn)
	}

	c.add(name, priority, func() error {
		fn()
		return nil
	})
}

// RegisterFunc adds fn with DefaultPriority.
func (c *Coordinator) RegisterFunc(name string, fn func()) {
	c.Register(fn, name, DefaultPriority)
}

// RegisterHook adds h.
func (c *Coordinator) RegisterHook(h Hook) {
	c.Register(h.Fn, h.Name, h.Priority)
}

// RegisterErrFunc adds fn; a non-nil error is treated as a hook failure.
func (c *Coordinator) RegisterErrFunc(name string, priority int, fn func() error) {
	if fn == nil {
		return
	}
	if name == "" {
		name = funcName(fn)
	}

	c.add(name, priority, fn)
}

// RegisterCloser adds a hook that closes closer.
func (c *Coordinator) RegisterCloser(name string, priority int, closer io.Closer) {
	if closer == nil {
		return
	}
	if name == "" {
		name = fmt.Sprintf("%T", closer)
	}

	c.add(name, priority, closer.Close)
}

func (c *Coordinator) add(name string, priority int, run func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, hookEntry{name: name, priority: priority, run: run})
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].priority < c.entries[j].priority
	})

	c.log.Debug("registered shutdown hook", slog.String("hook", name), slog.Int("priority", priority))
}

// Hooks returns the registered hooks in execution order.
func (c *Coordinator) Hooks() []HookInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]HookInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, HookInfo{Name: e.name, Priority: e.priority})
	}

	return out
}

// State reports the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// ShuttingDown reports whether the shutdown sequence has started.
func (c *Coordinator) ShuttingDown() bool {
	return c.State() == StateShuttingDown
}

// Done returns a channel closed once the shutdown sequence has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Execute runs the shutdown sequence. Only the first call does any work;
// later or concurrent calls return immediately. Hook and resource failures
// are logged and reported, never returned.
func (c *Coordinator) Execute() {
	c.execute()
}

// Wait blocks until the shutdown sequence has finished. Called from a hook,
// or from anything a hook calls, it returns at once instead of waiting on
// itself.
func (c *Coordinator) Wait() {
	if c.inSequence() {
		return
	}
	<-c.done
}

// execute reports whether this call ran the sequence.
func (c *Coordinator) execute() bool {
	if !c.state.CompareAndSwap(int32(StateArmed), int32(StateShuttingDown)) {
		return false
	}
	defer close(c.done)

	release := c.enterSequence()
	defer release()

	c.runSequence()
	return true
}

func (c *Coordinator) runSequence() {
	shutdownInProgress.Set(1)

	c.mu.Lock()
	entries := append([]hookEntry(nil), c.entries...)
	resources := c.resourceSnapshotLocked()
	c.mu.Unlock()

	log := c.log.With(slog.String("shutdown_id", uuid.NewString()))
	start := time.Now()
	log.Info("shutdown initiated",
		slog.Int("hook_count", len(entries)),
		slog.Int("resource_count", len(resources)),
	)

	failures := 0
	for _, e := range entries {
		if err := c.runHook(log, e); err != nil {
			failures++
		}
	}

	failures += c.closeResources(log, resources)

	log.Info("shutdown complete, all resources released",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("failures", failures),
	)
}

func (c *Coordinator) runHook(log *slog.Logger, e hookEntry) error {
	hookLog := log.With(slog.String("hook", e.name), slog.Int("priority", e.priority))
	hookLog.Info("executing shutdown hook")

	start := time.Now()
	err := c.invoke(e.run)
	elapsed := time.Since(start)
	hookDurationSeconds.WithLabelValues(e.name).Observe(elapsed.Seconds())

	if err != nil {
		hooksTotal.WithLabelValues(e.name, statusFailed).Inc()
		hookLog.Error("shutdown hook failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
		c.report(apperrors.NewHookError(e.name, err))
		return err
	}

	hooksTotal.WithLabelValues(e.name, statusOK).Inc()
	hookLog.Info("shutdown hook completed", slog.Duration("elapsed", elapsed))

	return nil
}

// invoke calls fn, converting a panic into an error and applying the hook
// timeout when one is configured.
func (c *Coordinator) invoke(fn func() error) error {
	if c.hookTimeout <= 0 {
		return safeCall(fn)
	}

	result := make(chan error, 1)
	go func() {
		release := c.enterSequence()
		defer release()
		result <- safeCall(fn)
	}()

	timer := time.NewTimer(c.hookTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrHookTimeout, c.hookTimeout)
	}
}

func (c *Coordinator) report(err error) {
	if c.reporter == nil || err == nil {
		return
	}

	if rerr := safeCall(func() error {
		c.reporter.Report(context.Background(), err)
		return nil
	}); rerr != nil {
		c.log.Warn("failed to report shutdown failure", slog.Any("error", rerr))
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}
