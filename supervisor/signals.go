package supervisor

import (
	"os/signal"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// signalSource exposes SIGCHLD, SIGHUP, SIGTERM, and SIGINT as a
// readable fd via signalfd, per spec.md §4.A. The signals are blocked on
// the calling thread first, and TERM/INT/HUP are also ignored through
// the runtime (see newSignalSource), so the kernel enqueues them on this
// fd instead of invoking a handler or the default disposition.
type signalSource struct {
	fd int
}

func addSignal(set *unix.Sigset_t, sig unix.Signal) {
	bit := uint(sig) - 1
	set.Val[bit/64] |= 1 << (bit % 64)
}

func newSignalSource() (*signalSource, error) {
	// PthreadSigmask only blocks these signals on the calling thread. The
	// Go runtime keeps other threads around (sysmon, notably, started
	// during runtime init before this ever runs) whose mask we can't
	// touch and which Linux is free to deliver a process-directed signal
	// to instead. signal.Ignore tells the runtime itself to stop applying
	// default disposition to these signals regardless of which thread
	// they land on, so the signalfd below is the only thing that ever
	// observably reacts to them.
	signal.Ignore(syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	var set unix.Sigset_t
	addSignal(&set, unix.SIGCHLD)
	addSignal(&set, unix.SIGHUP)
	addSignal(&set, unix.SIGTERM)
	addSignal(&set, unix.SIGINT)

	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
		return nil, errors.Wrap(err, "block signals")
	}

	fd, err := unix.Signalfd(-1, &set, unix.SFD_CLOEXEC|unix.SFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "create signalfd")
	}

	return &signalSource{fd: fd}, nil
}

func (s *signalSource) FD() int {
	return s.fd
}

var signalfdSiginfoSize = int(unsafe.Sizeof(unix.SignalfdSiginfo{}))

// drain reads every currently queued signal record and returns their
// signal numbers in delivery order. A single CHLD record still means
// "go drain every exited child"; the kernel coalesces repeat CHLDs
// itself, which the reaper's drain-to-empty loop relies on.
func (s *signalSource) drain() ([]unix.Signal, error) {
	var sigs []unix.Signal
	buf := make([]byte, signalfdSiginfoSize*16)

	for {
		n, err := unix.Read(s.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			return sigs, errors.Wrap(err, "read signalfd")
		}
		if n <= 0 {
			break
		}
		for off := 0; off+signalfdSiginfoSize <= n; off += signalfdSiginfoSize {
			info := (*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[off]))
			sigs = append(sigs, unix.Signal(info.Signo))
		}
	}

	return sigs, nil
}

func (s *signalSource) Close() error {
	return unix.Close(s.fd)
}
