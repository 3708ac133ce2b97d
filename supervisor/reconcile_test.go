package supervisor

import "testing"

func TestReconcileInsertsNewServices(t *testing.T) {
	e, _, fl := newTestEngine()

	e.Reconcile(map[string]ServiceSpec{
		"a": {Name: "a", Command: "sleep"},
	})

	svc := e.registry.LookupByName("a")
	if svc == nil {
		t.Fatal("service a was not inserted")
	}
	if svc.State.Kind != StateRunning {
		t.Fatalf("got %s, want running", svc.State.Kind)
	}
	if len(fl.launched) != 1 {
		t.Fatalf("got %d launches, want 1", len(fl.launched))
	}
}

func TestReconcileEquivalentSpecIsNoop(t *testing.T) {
	e, _, fl := newTestEngine()
	spec := ServiceSpec{Name: "a", Command: "sleep", Args: []string{"60"}}
	svc := e.registry.Insert(spec)
	e.Start(svc)

	e.Reconcile(map[string]ServiceSpec{"a": spec})

	if svc.State.Kind != StateRunning {
		t.Fatalf("reconciling with an equivalent spec changed state: got %s", svc.State.Kind)
	}
	if len(fl.launched) != 1 {
		t.Fatalf("reconciling with an equivalent spec relaunched: got %d launches", len(fl.launched))
	}
}

func TestReconcileDrivesChangeAndRemoval(t *testing.T) {
	e, _, _ := newTestEngine()
	a := e.registry.Insert(ServiceSpec{Name: "a", Command: "sleep", Args: []string{"3600"}})
	b := e.registry.Insert(ServiceSpec{Name: "b", Command: "sleep"})
	e.Start(a)
	e.Start(b)

	e.Reconcile(map[string]ServiceSpec{
		"a": {Name: "a", Command: "sleep", Args: []string{"60"}},
	})

	if a.State.Kind != StateStopping || a.State.Then != ThenRestartWith {
		t.Fatalf("changed service a: got %+v, want Stopping{then=RestartWith}", a.State)
	}
	if b.State.Kind != StateStopping || b.State.Then != ThenRemove {
		t.Fatalf("removed service b: got %+v, want Stopping{then=Remove}", b.State)
	}
}
