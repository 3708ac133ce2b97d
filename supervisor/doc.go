// Package supervisor is the core of svlopp: a single-threaded,
// event-driven engine that launches a declared set of long-running
// foreground processes, tracks their lifecycles, reaps them, reconciles
// them against a freshly parsed configuration, and shuts them down on a
// deadline.
//
// Mechanism of Operation
//
// Event Sources
//
// Three kernel objects are multiplexed with epoll: a signalfd carrying
// SIGCHLD/SIGHUP/SIGTERM/SIGINT, a timerfd ticking at a fixed period to
// enforce stop deadlines, and the read end of a control FIFO carrying
// fixed-size command frames. There is exactly one goroutine: the one
// blocked in epoll_wait. Every handler it dispatches to runs to
// completion before the next event is considered, so registry mutations
// never race each other.
//
// Reaping
//
// All child exits are observed in exactly one place: the SIGCHLD branch
// of the event loop, which drains every exited child with a
// non-blocking wait4 loop before returning. No other code path may
// reap. A pid the reaper doesn't recognize is an orphaned descendant
// inherited through the subreaper bit and is silently discarded.
//
// Pending Intent
//
// A service that is asked to do something (stop, restart, reload) while
// its process is already exiting can't act until the exit is observed.
// Rather than queue the request, it is folded into the Stopping state's
// "then" field by priority (Remove beats RestartWith beats Restart
// beats Idle), so the strongest request always wins and no reordering
// bug can let a stale restart fire after a later removal.
package supervisor
