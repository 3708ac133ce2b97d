package supervisor

import (
	"bytes"
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// WriteStatus rewrites path atomically with one line per service, per
// spec.md §4.J, if and only if the registry has changed since the last
// successful write. renameio.WriteFile does the write-to-temp,
// fsync, rename dance itself, the same pattern
// _examples/original_source/src/status.rs hand-rolls with rustix.
func (e *Engine) WriteStatus() error {
	if !e.registry.Dirty() {
		return nil
	}

	var buf bytes.Buffer
	for _, svc := range e.registry.Iter() {
		buf.WriteString(formatStatusLine(svc))
		buf.WriteByte('\n')
	}

	if err := renameio.WriteFile(e.statusPath, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write status file")
	}

	e.registry.ClearDirty()
	return nil
}

func formatStatusLine(svc *Service) string {
	switch svc.State.Kind {
	case StateRunning:
		return fmt.Sprintf("%s %d running %d", svc.Spec.Name, svc.ID, svc.State.PID)
	case StateStopping:
		return fmt.Sprintf("%s %d stopping %d", svc.Spec.Name, svc.ID, svc.State.PID)
	case StateStopped:
		return fmt.Sprintf("%s %d stopped %s", svc.Spec.Name, svc.ID, svc.State.Reason)
	case StateStarting:
		// Transient in this implementation (procexec.Launch resolves
		// synchronously), but kept for completeness against spec.md's
		// state variant.
		return fmt.Sprintf("%s %d starting", svc.Spec.Name, svc.ID)
	default:
		return fmt.Sprintf("%s %d unknown", svc.Spec.Name, svc.ID)
	}
}
