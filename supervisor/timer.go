package supervisor

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// deadlineTickPeriod is the timer source's tick frequency. spec.md §4.B
// leaves this implementation-defined and suggests 250ms; that is what
// is used here (see DESIGN.md's Open Question resolution).
const deadlineTickPeriod = 250 * time.Millisecond

// timerSource is a periodic timerfd used to notice when a Stopping
// service's deadline has elapsed, per spec.md §4.B.
type timerSource struct {
	fd int
}

func newTimerSource(period time.Duration) (*timerSource, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "create timerfd")
	}

	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "arm timerfd")
	}

	return &timerSource{fd: fd}, nil
}

func (t *timerSource) FD() int {
	return t.fd
}

// drain consumes the tick count so the fd stops being readable until the
// next period elapses. The count itself (how many periods elapsed since
// the last read) is not interesting here: deadline checks are
// idempotent, so a missed tick or two changes nothing but latency.
func (t *timerSource) drain() error {
	var buf [8]byte
	_, err := unix.Read(t.fd, buf[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return errors.Wrap(err, "read timerfd")
	}
	return nil
}

func (t *timerSource) Close() error {
	return unix.Close(t.fd)
}
