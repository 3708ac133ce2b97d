package supervisor

import (
	"os"
	"strings"
	"testing"
)

func TestFormatStatusLine(t *testing.T) {
	cases := []struct {
		name string
		svc  *Service
		want string
	}{
		{
			name: "running",
			svc:  &Service{ID: 1, Spec: ServiceSpec{Name: "a"}, State: ServiceState{Kind: StateRunning, PID: 42}},
			want: "a 1 running 42",
		},
		{
			name: "stopping",
			svc:  &Service{ID: 2, Spec: ServiceSpec{Name: "b"}, State: ServiceState{Kind: StateStopping, PID: 43}},
			want: "b 2 stopping 43",
		},
		{
			name: "stopped exited",
			svc:  &Service{ID: 3, Spec: ServiceSpec{Name: "c"}, State: ServiceState{Kind: StateStopped, Reason: StopReason{Kind: ExitedNormally, Code: 0}}},
			want: "c 3 stopped exited:0",
		},
		{
			name: "stopped signal",
			svc:  &Service{ID: 4, Spec: ServiceSpec{Name: "d"}, State: ServiceState{Kind: StateStopped, Reason: StopReason{Kind: KilledBySignal, Signal: 9}}},
			want: "d 4 stopped signal:9",
		},
		{
			name: "failed to start",
			svc:  &Service{ID: 5, Spec: ServiceSpec{Name: "e"}, State: ServiceState{Kind: StateStopped, Reason: StopReason{Kind: FailedToStart}}},
			want: "e 5 stopped failed_to_start",
		},
		{
			name: "stopped by user",
			svc:  &Service{ID: 6, Spec: ServiceSpec{Name: "f"}, State: ServiceState{Kind: StateStopped, Reason: StopReason{Kind: StoppedByUser}}},
			want: "f 6 stopped stopped_by_user",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := formatStatusLine(c.svc); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestWriteStatusSkipsWhenClean(t *testing.T) {
	e := &Engine{registry: NewRegistry(), journal: NopJournaler{}, statusPath: "/nonexistent/should/never/be/opened"}
	e.registry.ClearDirty()

	if err := e.WriteStatus(); err != nil {
		t.Fatalf("WriteStatus on a clean registry should be a no-op, got: %v", err)
	}
}

func TestWriteStatusContent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/status"

	e := &Engine{registry: NewRegistry(), journal: NopJournaler{}, statusPath: path}
	svc := e.registry.Insert(ServiceSpec{Name: "a"})
	svc.State = ServiceState{Kind: StateRunning, PID: 99}
	e.registry.MarkDirty()

	if err := e.WriteStatus(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading status file: %v", err)
	}
	if !strings.Contains(string(data), "a 1 running 99\n") {
		t.Fatalf("got %q, want a line for service a", data)
	}

	if e.registry.Dirty() {
		t.Fatal("WriteStatus should clear the dirty flag on success")
	}
}
