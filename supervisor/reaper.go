package supervisor

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// reapedChild is one exited (or signal-stopped, though we never request
// that) child observed by wait4.
type reapedChild struct {
	PID    int
	Status syscall.WaitStatus
}

// reapAll drains every exited child non-blockingly, per spec.md §4.F:
// "must drain until no further children are ready in a single
// invocation; otherwise a lost CHLD (signal coalescing) would strand a
// dead child." It stops at ECHILD (no children left at all) or a zero
// pid (nothing more to reap right now).
func reapAll() ([]reapedChild, error) {
	var out []reapedChild
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if err != nil {
			if errors.Is(err, unix.ECHILD) {
				break
			}
			return out, errors.Wrap(err, "wait4")
		}
		if pid <= 0 {
			break
		}
		out = append(out, reapedChild{PID: pid, Status: syscall.WaitStatus(ws)})
	}
	return out, nil
}

// translateStatus converts a wait4 status into a StopReason. FailedToStart
// is never produced here: procexec.Launch reports exec failures
// synchronously, before a pid ever exists to reap (see its doc comment),
// so every reaped child by definition made it past exec.
func translateStatus(ws syscall.WaitStatus) StopReason {
	switch {
	case ws.Signaled():
		return StopReason{Kind: KilledBySignal, Signal: int(ws.Signal())}
	case ws.Exited():
		return StopReason{Kind: ExitedNormally, Code: ws.ExitStatus()}
	default:
		// Stopped or continued: wait4 without WUNTRACED/WCONTINUED
		// shouldn't surface these, but treat conservatively as a plain
		// exit code of -1 rather than panic on an impossible case.
		return StopReason{Kind: ExitedNormally, Code: -1}
	}
}

var crashSignals = map[int]bool{
	int(syscall.SIGSEGV): true,
	int(syscall.SIGABRT): true,
	int(syscall.SIGFPE):  true,
	int(syscall.SIGILL):  true,
	int(syscall.SIGBUS):  true,
}

// isCrashSignal reports whether sig is one of the signals that
// conventionally indicate the process crashed rather than was asked to
// stop, adapted from original_source/src/utils.rs's is_crash_signal.
// It only affects which Event is logged, never supervision behavior.
func isCrashSignal(sig int) bool {
	return crashSignals[sig]
}
