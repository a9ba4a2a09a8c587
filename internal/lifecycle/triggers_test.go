package lifecycle

import (
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exitRecorder() (func(int), <-chan int) {
	codes := make(chan int, 4)
	return func(code int) { codes <- code }, codes
}

func TestInstall_SignalTriggersShutdownAndExitZero(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	var ran atomic.Bool
	coord.RegisterFunc("cleanup", func() { ran.Store(true) })
	db := &fakeResource{}
	coord.AddResource("default", db)

	coord.Install()
	coord.Install()
	t.Cleanup(coord.Uninstall)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not trigger shutdown")
	}

	assert.True(t, ran.Load())
	assert.Equal(t, int32(1), db.closed.Load())
	assert.True(t, coord.ShuttingDown())
}

func TestInstall_CustomSignal(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit), WithSignals(syscall.SIGUSR1))
	coord.Install()
	t.Cleanup(coord.Uninstall)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("custom signal did not trigger shutdown")
	}
}

func TestInstall_SignalDuringRunningShutdownExitsAtOnce(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	release := make(chan struct{})
	coord.RegisterFunc("stuck", func() { <-release })
	t.Cleanup(func() { close(release) })

	go coord.Execute()
	require.Eventually(t, coord.ShuttingDown, time.Second, time.Millisecond)

	coord.Install()
	t.Cleanup(coord.Uninstall)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not honoured while a hook was blocked")
	}
}

func TestInstall_SecondSignalExitsWhileHookHangs(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	entered := make(chan struct{})
	release := make(chan struct{})
	coord.RegisterFunc("stuck", func() {
		close(entered)
		<-release
	})

	coord.Install()
	t.Cleanup(coord.Uninstall)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first signal did not start shutdown")
	}

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not exit while the hook was blocked")
	}

	close(release)
	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("first signal did not exit after the sequence finished")
	}
}

func TestUninstall_StopsWatcherWithoutShutdown(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	coord.Install()
	coord.Uninstall()
	coord.Uninstall()

	select {
	case <-codes:
		t.Fatal("uninstall must not exit")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateArmed, coord.State())
}

func TestExitHook_NormalReturn(t *testing.T) {
	coord := NewCoordinator(testLogger())

	var ran atomic.Bool
	coord.RegisterFunc("cleanup", func() { ran.Store(true) })

	func() {
		defer coord.ExitHook()
	}()

	assert.True(t, ran.Load())
	assert.True(t, coord.ShuttingDown())
}

func TestExitHook_RepanicsAfterCleanup(t *testing.T) {
	coord := NewCoordinator(testLogger())

	var ran atomic.Bool
	coord.RegisterFunc("cleanup", func() { ran.Store(true) })

	assert.PanicsWithValue(t, "fatal", func() {
		defer coord.ExitHook()
		panic("fatal")
	})
	assert.True(t, ran.Load())
}

func TestExitHook_WaitsForRunningShutdown(t *testing.T) {
	coord := NewCoordinator(testLogger())

	release := make(chan struct{})
	var finished atomic.Bool
	coord.RegisterFunc("slow", func() {
		<-release
		finished.Store(true)
	})

	go coord.Execute()
	require.Eventually(t, coord.ShuttingDown, time.Second, time.Millisecond)

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		defer coord.ExitHook()
	}()

	select {
	case <-returned:
		t.Fatal("ExitHook returned before the running shutdown finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-returned
	assert.True(t, finished.Load())
}

func TestExit_RunsShutdownThenExits(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	var ran atomic.Bool
	coord.RegisterFunc("cleanup", func() { ran.Store(true) })

	coord.Exit(3)

	assert.Equal(t, 3, <-codes)
	assert.True(t, ran.Load())
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, syscall.SIGHUP.String(), signalName(syscall.SIGHUP))
}

func TestExit_FromHookDoesNotDeadlock(t *testing.T) {
	exit, codes := exitRecorder()
	coord := NewCoordinator(testLogger(), WithExitFunc(exit))

	var after atomic.Bool
	coord.Register(func() { coord.Exit(7) }, "exits", 1)
	coord.Register(func() { after.Store(true) }, "after", 2)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		coord.Execute()
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Exit called from a hook deadlocked the sequence")
	}

	assert.Equal(t, 7, <-codes)
	assert.True(t, after.Load())
}

func TestExitHook_FromHookWithTimeoutDoesNotWait(t *testing.T) {
	coord := NewCoordinator(testLogger(), WithHookTimeout(time.Minute))

	returned := make(chan struct{})
	coord.RegisterFunc("nested", func() {
		defer close(returned)
		defer coord.ExitHook()
	})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		coord.Execute()
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("ExitHook inside a hook waited on its own sequence")
	}
	<-finished
}

func TestWait_OutsideSequenceBlocksUntilDone(t *testing.T) {
	coord := NewCoordinator(testLogger())

	waited := make(chan struct{})
	go func() {
		defer close(waited)
		coord.Wait()
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned before shutdown")
	case <-time.After(50 * time.Millisecond):
	}

	coord.Execute()
	<-waited
	assert.False(t, coord.inSequence())
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	assert.NotZero(t, id)
	assert.Equal(t, id, goroutineID())

	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	assert.NotEqual(t, id, <-other)
}
