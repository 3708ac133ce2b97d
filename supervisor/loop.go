package supervisor

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"go.unsigned.dev/svlopp/internal/procexec"
)

const (
	sigTERM = syscall.SIGTERM
	sigKILL = syscall.SIGKILL
)

// defaultStopDeadline is the deadline T of spec.md §5 between a service
// (or the whole supervisor) being asked to stop and being killed. The
// exact duration is an Open Question left to the implementer by
// spec.md §9; ten seconds is what is documented and used here.
const defaultStopDeadline = 10 * time.Second

// Config bundles Engine's external collaborators: the pieces spec.md §1
// and §6 place outside the core (config decoding, log emission) are
// represented as plain interfaces/funcs the core consumes, never
// concrete implementations it imports.
type Config struct {
	// StatusPath is where the status file (§4.J) is atomically rewritten.
	StatusPath string
	// ControlPath is where the control FIFO (§4.C) is created.
	ControlPath string
	// StopDeadline is T. Defaults to defaultStopDeadline if zero.
	StopDeadline time.Duration
	// Journal receives every Event the engine emits. Defaults to
	// NopJournaler if nil.
	Journal Journaler
	// LoadConfig re-parses the configuration file on HUP. May be nil if
	// the caller never intends to send HUP (e.g. in tests).
	LoadConfig func() (map[string]ServiceSpec, error)
}

// Engine is the event loop (component D) together with everything it
// drives directly: the registry (G), the state machine (H), the
// reconciler (I), and the status writer (J). It owns the kernel event
// sources (A, B, C) for its lifetime.
type Engine struct {
	registry     *Registry
	journal      Journaler
	stopDeadline time.Duration
	loadConfig   func() (map[string]ServiceSpec, error)

	shutdownRequested bool

	sig   *signalSource
	timer *timerSource
	ctl   *controlChannel

	epfd int

	statusPath string

	now        func() time.Time                       // overridden in tests
	launchFunc func(spec ServiceSpec) (int, error)     // overridden in tests
	signalFunc func(pid int, sig syscall.Signal) error // overridden in tests
}

// NewEngine sets the process-wide subreaper bit, creates the signalfd,
// timerfd, and control FIFO, registers them with a fresh epoll
// instance, and returns a ready-to-Run Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Journal == nil {
		cfg.Journal = NopJournaler{}
	}
	if cfg.StopDeadline <= 0 {
		cfg.StopDeadline = defaultStopDeadline
	}

	if err := procexec.SetSubreaper(); err != nil {
		return nil, err
	}

	sig, err := newSignalSource()
	if err != nil {
		return nil, err
	}

	timer, err := newTimerSource(deadlineTickPeriod)
	if err != nil {
		sig.Close()
		return nil, err
	}

	ctl, err := newControlChannel(cfg.ControlPath)
	if err != nil {
		sig.Close()
		timer.Close()
		return nil, err
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		sig.Close()
		timer.Close()
		ctl.Close()
		return nil, errors.Wrap(err, "create epoll instance")
	}

	e := &Engine{
		registry:     NewRegistry(),
		journal:      cfg.Journal,
		stopDeadline: cfg.StopDeadline,
		loadConfig:   cfg.LoadConfig,
		sig:          sig,
		timer:        timer,
		ctl:          ctl,
		epfd:         epfd,
		statusPath:   cfg.StatusPath,
		launchFunc: func(spec ServiceSpec) (int, error) {
			return procexec.Launch(spec.Command, spec.Args)
		},
		signalFunc: procexec.SignalGroup,
	}

	for _, fd := range [...]int{sig.FD(), timer.FD(), ctl.FD()} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			e.Close()
			return nil, errors.Wrap(err, "register event source with epoll")
		}
	}

	return e, nil
}

// Close releases every kernel resource the engine owns. It does not
// touch supervised child processes.
func (e *Engine) Close() error {
	var firstErr error
	if e.sig != nil {
		if err := e.sig.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.timer != nil {
		if err := e.timer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.ctl != nil {
		if err := e.ctl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := unix.Close(e.epfd); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run starts every service in initial, then blocks dispatching events
// until shutdown has been requested and every service has come to
// rest, per spec.md §4.D.
func (e *Engine) Run(initial map[string]ServiceSpec) error {
	for _, spec := range initial {
		svc := e.registry.Insert(spec)
		e.Start(svc)
	}
	if err := e.WriteStatus(); err != nil {
		e.journal.Write(EventWarning{Component: "status", Err: err})
	}

	events := make([]unix.EpollEvent, 16)

	for {
		n, err := unix.EpollWait(e.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return errors.Wrap(err, "epoll wait")
		}

		for i := 0; i < n; i++ {
			switch int(events[i].Fd) {
			case e.sig.FD():
				if err := e.handleSignals(); err != nil {
					return err
				}
			case e.timer.FD():
				e.handleTimer()
			case e.ctl.FD():
				e.handleControl()
			}
		}

		if err := e.WriteStatus(); err != nil {
			e.journal.Write(EventWarning{Component: "status", Err: err})
		}

		if e.shutdownRequested && e.registry.AllStopped() {
			return nil
		}
	}
}

func (e *Engine) handleSignals() error {
	sigs, err := e.sig.drain()
	if err != nil {
		// Per spec.md §7, a signal source read failure is fatal: it
		// invalidates the invariant that CHLD/HUP/TERM/INT are only ever
		// observed through this fd.
		return errors.Wrap(err, "signal source read failure")
	}

	for _, sig := range sigs {
		switch sig {
		case unix.SIGHUP:
			e.handleReload()
		case unix.SIGCHLD:
			e.handleChild()
		case unix.SIGTERM, unix.SIGINT:
			e.requestShutdown()
		}
	}
	return nil
}

func (e *Engine) handleReload() {
	if e.shutdownRequested || e.loadConfig == nil {
		return
	}
	e.journal.Write(EventReloadStarted{})
	config, err := e.loadConfig()
	if err != nil {
		e.journal.Write(EventReloadFailed{Err: err})
		return
	}
	e.Reconcile(config)
}

func (e *Engine) handleChild() {
	reaped, err := reapAll()
	if err != nil {
		e.journal.Write(EventWarning{Component: "reaper", Err: err})
	}
	for _, r := range reaped {
		svc := e.registry.LookupByPID(r.PID)
		if svc == nil {
			// Orphaned descendant reaped by virtue of the subreaper bit.
			continue
		}
		e.ProcessExited(svc, translateStatus(r.Status))
	}
}

func (e *Engine) handleTimer() {
	if err := e.timer.drain(); err != nil {
		e.journal.Write(EventWarning{Component: "timer", Err: err})
	}
	e.checkDeadlines()
}

func (e *Engine) handleControl() {
	cmds, errs := e.ctl.drain()
	for _, err := range errs {
		e.journal.Write(EventControlDropped{Err: err})
	}
	for _, cmd := range cmds {
		svc := e.registry.LookupByID(cmd.ID)
		if svc == nil {
			e.journal.Write(EventControlUnknown{ID: cmd.ID, Op: cmd.Op})
			continue
		}
		switch cmd.Op {
		case ControlStart:
			e.Start(svc)
		case ControlStop:
			e.Stop(svc)
		case ControlRestart:
			e.Restart(svc)
		}
	}
}

// checkDeadlines implements the timer source's responsibility (spec.md
// §4.B): escalate to KILL any Stopping service whose deadline has
// passed. The service stays Stopping, "then" preserved, until
// ProcessExited arrives; resending KILL on every subsequent tick is
// harmless (spec.md §8's boundary behaviors).
func (e *Engine) checkDeadlines() {
	now := e.clock()
	for _, svc := range e.registry.Iter() {
		if svc.State.Kind != StateStopping {
			continue
		}
		if !now.Before(svc.State.Deadline) {
			if err := e.signalFunc(svc.State.PID, sigKILL); err != nil {
				e.journal.Write(EventWarning{Component: "deadline", Err: err})
			}
		}
	}
}

// requestShutdown implements spec.md §4.D's two-phase shutdown. The
// first TERM/INT sets the flag and force-transitions every non-stopped
// service to Stopping{deadline=now+T, then=Idle}; every subsequent
// TERM/INT is a no-op because shutdownRequested is already true.
func (e *Engine) requestShutdown() {
	if e.shutdownRequested {
		return
	}
	e.shutdownRequested = true
	e.journal.Write(EventShutdown{})

	deadline := e.clock().Add(e.stopDeadline)
	for _, svc := range e.registry.Iter() {
		if svc.State.Kind == StateStopped {
			continue
		}
		if svc.State.Kind == StateRunning {
			if err := e.signalFunc(svc.State.PID, sigTERM); err != nil {
				e.journal.Write(EventWarning{Component: "shutdown", Err: err})
			}
		}
		svc.State = ServiceState{
			Kind:     StateStopping,
			PID:      svc.State.PID,
			Deadline: deadline,
			Then:     ThenIdle,
		}
	}
	e.registry.MarkDirty()
}
