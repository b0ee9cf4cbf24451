package manager

import (
	"reflect"
	"testing"

	"inferd/internal/engine/enginetest"
)

func TestEventPublisher_LifecycleEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	m := newTestManager(t, &enginetest.Backend{FailGPU: true}, ManagerConfig{Publisher: pub})
	if _, err := m.Load(testCtx(t), 99); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Cancel()
	m.Unload()

	want := []string{"load_start", "load_fallback", "load_done", "cancel", "unload_done"}
	if got := pub.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	done := pub.Events()[2]
	if done.Fields["acceleration"] != "CPU" || done.Fields["fallback"] != true {
		t.Fatalf("unexpected load_done fields: %+v", done.Fields)
	}
}

func TestEventPublisher_LoadFailed(t *testing.T) {
	pub := NewMemoryPublisher()
	m := newTestManager(t, &enginetest.Backend{LoadErr: enginetest.ErrGPU}, ManagerConfig{})
	m.SetEventPublisher(pub)
	if _, err := m.Load(testCtx(t), 0); err == nil {
		t.Fatalf("expected load failure")
	}
	want := []string{"load_start", "load_fallback", "load_failed"}
	if got := pub.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestSetEventPublisher_NilRestoresNoop(t *testing.T) {
	m := newTestManager(t, &enginetest.Backend{}, ManagerConfig{})
	m.SetEventPublisher(nil)
	// Should not panic
	m.Cancel()
}
