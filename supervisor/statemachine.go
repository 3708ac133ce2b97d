package supervisor

import "time"

// The six inputs of spec.md §4.H are represented as methods on Engine
// rather than as a message type dispatched through a queue: every
// mutation they perform is applied to the registry synchronously and in
// full before the method returns, which is what lets the event loop
// call them directly from its dispatch switch without inventing a
// second scheduling layer.

// Start applies the Start input (spec.md §4.H) to svc.
func (e *Engine) Start(svc *Service) {
	switch svc.State.Kind {
	case StateStopped:
		e.launch(svc, svc.Spec)
	case StateRunning:
		// idempotent no-op
	case StateStopping:
		// "queue pending=StartAfter": if this service was only going to
		// idle once stopped, make sure it comes back up instead. A
		// stronger intent already in flight (Remove, RestartWith) is
		// left untouched by refineThen's priority ordering.
		e.refineThen(svc, ThenRestart, nil)
	}
}

// Stop applies the Stop input to svc.
func (e *Engine) Stop(svc *Service) {
	switch svc.State.Kind {
	case StateStopped:
		// idempotent no-op
	case StateRunning:
		e.beginStopping(svc, ThenIdle, nil)
	case StateStopping:
		e.refineThen(svc, ThenIdle, nil)
	}
}

// Restart applies the Restart input to svc.
func (e *Engine) Restart(svc *Service) {
	switch svc.State.Kind {
	case StateStopped:
		e.launch(svc, svc.Spec)
	case StateRunning:
		e.beginStopping(svc, ThenRestart, nil)
	case StateStopping:
		e.refineThen(svc, ThenRestart, nil)
	}
}

// ReloadChanged applies the reconciler's ReloadChanged(newSpec) input.
func (e *Engine) ReloadChanged(svc *Service, newSpec ServiceSpec) {
	switch svc.State.Kind {
	case StateStopped:
		e.launch(svc, newSpec)
	case StateRunning:
		spec := newSpec
		e.beginStopping(svc, ThenRestartWith, &spec)
	case StateStopping:
		spec := newSpec
		e.refineThen(svc, ThenRestartWith, &spec)
	}
}

// ReloadRemoved applies the reconciler's ReloadRemoved input.
func (e *Engine) ReloadRemoved(svc *Service) {
	switch svc.State.Kind {
	case StateStopped:
		e.removeService(svc)
	case StateRunning:
		e.beginStopping(svc, ThenRemove, nil)
	case StateStopping:
		e.refineThen(svc, ThenRemove, nil)
	}
}

// ProcessExited applies the reaper's ProcessExited(reason) input.
func (e *Engine) ProcessExited(svc *Service, reason StopReason) {
	e.registry.UnregisterPID(svc.State.PID)

	switch svc.State.Kind {
	case StateRunning:
		e.applyOnExit(svc, reason)
	case StateStopping:
		e.resolveThen(svc)
	case StateStopped, StateStarting:
		// Shouldn't happen: a Stopped/Starting service owns no pid to
		// exit. Ignore rather than corrupt state on an impossible input.
	}
}

// refineThen updates svc's pending "then" intent only if the new intent
// is at least as strong as the current one, per spec.md's priority
// order Remove > RestartWith(new) > Restart > Idle.
func (e *Engine) refineThen(svc *Service, next ThenIntent, spec *ServiceSpec) {
	if thenPriority(next) >= thenPriority(svc.State.Then) {
		svc.State.Then = next
		svc.State.ThenSpec = spec
	}
}

// beginStopping transitions a Running service to Stopping, sending TERM
// to its process group and arming a fresh deadline.
func (e *Engine) beginStopping(svc *Service, then ThenIntent, thenSpec *ServiceSpec) {
	pid := svc.State.PID
	if err := e.signalFunc(pid, sigTERM); err != nil {
		e.journal.Write(EventWarning{Component: "stop", Err: err})
	}
	svc.State = ServiceState{
		Kind:     StateStopping,
		PID:      pid,
		Deadline: e.clock().Add(e.stopDeadline),
		Then:     then,
		ThenSpec: thenSpec,
	}
	e.registry.MarkDirty()
}

// applyOnExit implements spec.md §4.H's "ProcessExited on Running"
// cell: on_exit is a fallback that only runs because nothing else asked
// this process to stop.
func (e *Engine) applyOnExit(svc *Service, reason StopReason) {
	e.journal.Write(EventServiceExited{Name: svc.Spec.Name, ID: svc.ID, Reason: reason, Crash: reason.Kind == KilledBySignal && isCrashSignal(reason.Signal)})

	switch svc.Spec.OnExit {
	case OnExitNone:
		e.transitionToStopped(svc, reason)
	case OnExitRestart:
		e.launch(svc, svc.Spec)
	case OnExitRemove:
		e.removeService(svc)
	}
}

// resolveThen implements spec.md §4.H's "ProcessExited on Stopping"
// cell. The actual exit reason is discarded here by design (see
// spec.md's "Critical design choice"): whatever intent accumulated
// while stopping determines the outcome, not how the process happened
// to die.
func (e *Engine) resolveThen(svc *Service) {
	switch svc.State.Then {
	case ThenIdle:
		e.transitionToStopped(svc, StopReason{Kind: StoppedByUser})
	case ThenRestart:
		e.launch(svc, svc.Spec)
	case ThenRestartWith:
		spec := svc.Spec
		if svc.State.ThenSpec != nil {
			spec = *svc.State.ThenSpec
		}
		e.launch(svc, spec)
	case ThenRemove:
		e.removeService(svc)
	}
}

// launch starts spec's process for svc, adopting spec as svc's current
// spec on success. On failure the service comes to rest Stopped with
// FailedToStart and no retry is scheduled (spec.md §4.H: "no retry loop
// — by design, to avoid pathological restart storms").
func (e *Engine) launch(svc *Service, spec ServiceSpec) {
	pid, err := e.launchFunc(spec)
	if err != nil {
		e.journal.Write(EventServiceSpawnError{Name: spec.Name, ID: svc.ID, Err: err})
		e.transitionToStopped(svc, StopReason{Kind: FailedToStart})
		return
	}

	svc.Spec = spec
	svc.State = ServiceState{Kind: StateRunning, PID: pid}
	e.registry.RegisterPID(pid, spec.Name)
	e.registry.MarkDirty()
	e.journal.Write(EventServiceStarted{Name: spec.Name, ID: svc.ID, PID: pid})
}

func (e *Engine) transitionToStopped(svc *Service, reason StopReason) {
	svc.State = ServiceState{Kind: StateStopped, Reason: reason}
	e.registry.MarkDirty()
}

func (e *Engine) removeService(svc *Service) {
	e.journal.Write(EventServiceRemoved{Name: svc.Spec.Name, ID: svc.ID})
	e.registry.Remove(svc.Spec.Name)
}

// clock is overridable in tests; defaults to time.Now.
func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
