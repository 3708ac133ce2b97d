// Package procexec launches service processes as leaders of their own
// process group, with the supervisor's subreaper bit already set. It is
// the Go-native equivalent of cronmon/internal/exec, adapted to launch
// a command plus its argument vector (per spec.md §4.E) rather than a
// single script path.
package procexec

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SetSubreaper marks the calling process as the reaper of orphaned
// descendants. Must be called once, at startup, before any service is
// launched.
func SetSubreaper() error {
	if err := unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0); err != nil {
		return errors.Wrap(err, "set child subreaper")
	}
	return nil
}

// Launch starts command as the leader of a new process group, with args
// appended after command in the argument vector (argv[0] is command
// itself, matching what a shell would put there). It never blocks
// waiting on the child: on success it returns the pid immediately:
// os.StartProcess's fork+exec happens synchronously in the runtime but
// resolving command against PATH and reporting an exec failure both
// happen before this call returns, so a failed exec here never leaves
// behind a reapable child.
func Launch(command string, args []string) (pid int, err error) {
	binPath, err := exec.LookPath(command)
	if err != nil {
		return 0, errors.Wrap(err, "resolve executable")
	}

	argv := append([]string{command}, args...)

	proc, err := os.StartProcess(binPath, argv, &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
		Sys: &syscall.SysProcAttr{
			Setpgid: true,
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "start process")
	}

	// We reap through our own wait4 loop (see the reaper), never through
	// os.Process.Wait. Release drops the runtime's bookkeeping for this
	// handle without touching the child.
	proc.Release()

	return proc.Pid, nil
}

// SignalGroup sends sig to every process in pid's process group. Used to
// stop and, on deadline, kill a service's whole tree in one syscall.
func SignalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}
