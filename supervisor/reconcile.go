package supervisor

// Reconcile diffs a freshly parsed configuration against the registry
// and drives the appropriate per-service transition for each name, per
// spec.md §4.I. It is only ever invoked from the loop's HUP branch.
func (e *Engine) Reconcile(config map[string]ServiceSpec) {
	for name, spec := range config {
		svc := e.registry.LookupByName(name)
		if svc == nil {
			svc = e.registry.Insert(spec)
			e.Start(svc)
			continue
		}
		if svc.Spec.Equal(spec) {
			continue
		}
		e.ReloadChanged(svc, spec)
	}

	for _, svc := range e.registry.Iter() {
		if _, ok := config[svc.Spec.Name]; !ok {
			e.ReloadRemoved(svc)
		}
	}
}
