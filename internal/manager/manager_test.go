package manager

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"inferd/internal/engine/enginetest"
)

func TestLoad_GPU(t *testing.T) {
	b := &enginetest.Backend{GPU: true}
	m := newTestManager(t, b, ManagerConfig{})
	res, err := m.Load(testCtx(t), 99)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Acceleration != AccelGPU || res.GPULayers != 99 || res.Fallback {
		t.Fatalf("unexpected result: %+v", res)
	}
	h := m.Health()
	if !h.ModelLoaded || h.Acceleration.String() != "GPU" {
		t.Fatalf("unexpected health: %+v", h)
	}
	calls := b.Calls()
	if len(calls) != 1 || calls[0].GPULayers != 99 || calls[0].Path != m.ModelPath() {
		t.Fatalf("unexpected load calls: %+v", calls)
	}
}

func TestLoad_FallsBackToCPU(t *testing.T) {
	b := &enginetest.Backend{FailGPU: true}
	m := newTestManager(t, b, ManagerConfig{})
	res, err := m.Load(testCtx(t), 99)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Acceleration != AccelCPU || res.GPULayers != 0 || !res.Fallback {
		t.Fatalf("unexpected result: %+v", res)
	}
	calls := b.Calls()
	if len(calls) != 2 || calls[0].GPULayers != 99 || calls[1].GPULayers != 0 {
		t.Fatalf("expected GPU attempt then CPU retry, got %+v", calls)
	}
	st := m.Status()
	if st.FallbacksTotal != 1 || st.LoadsTotal != 1 || st.Acceleration != "CPU" || st.GPULayers != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLoad_ZeroLayersIsCPUAndRetriedOnce(t *testing.T) {
	b := &enginetest.Backend{}
	m := newTestManager(t, b, ManagerConfig{})
	res, err := m.Load(testCtx(t), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Acceleration != AccelCPU || res.GPULayers != 0 || res.Fallback {
		t.Fatalf("unexpected result: %+v", res)
	}

	b2 := &enginetest.Backend{LoadErr: errors.New("bad weights")}
	m2 := newTestManager(t, b2, ManagerConfig{})
	if _, err := m2.Load(testCtx(t), 0); !IsLoadFailure(err) {
		t.Fatalf("expected load failure, got %v", err)
	}
	calls := b2.Calls()
	if len(calls) != 2 || calls[0].GPULayers != 0 || calls[1].GPULayers != 0 {
		t.Fatalf("expected one CPU retry, got %+v", calls)
	}
	if st := m2.Status(); st.FallbacksTotal != 0 || st.State != "unloaded" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLoad_NegativeLayersClampedToZero(t *testing.T) {
	b := &enginetest.Backend{}
	m := newTestManager(t, b, ManagerConfig{})
	res, err := m.Load(testCtx(t), -3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Acceleration != AccelCPU || b.Calls()[0].GPULayers != 0 {
		t.Fatalf("unexpected result %+v calls %+v", res, b.Calls())
	}
}

func TestLoad_NotFound(t *testing.T) {
	b := &enginetest.Backend{GPU: true}
	m := newTestManager(t, b, ManagerConfig{ModelPath: filepath.Join(t.TempDir(), "missing.gguf")})
	_, err := m.Load(testCtx(t), 99)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(b.Calls()) != 0 {
		t.Fatalf("engine should not be called for a missing file")
	}
	if m.Ready() {
		t.Fatalf("slot should stay empty")
	}
}

func TestLoad_BothAttemptsFail(t *testing.T) {
	b := &enginetest.Backend{LoadErr: errors.New("corrupt")}
	m := newTestManager(t, b, ManagerConfig{})
	_, err := m.Load(testCtx(t), 99)
	if !IsLoadFailure(err) {
		t.Fatalf("expected load failure, got %v", err)
	}
	if len(b.Calls()) != 2 {
		t.Fatalf("expected GPU and CPU attempts, got %+v", b.Calls())
	}
	st := m.Status()
	if st.State != string(StateUnloaded) || st.LastError == "" || st.Acceleration != "None" {
		t.Fatalf("unexpected status after failed load: %+v", st)
	}
}

func TestLoad_FailurePreservesPriorModel(t *testing.T) {
	m, b := loadedManager(t, &enginetest.Model{}, ManagerConfig{})
	b.LoadErr = errors.New("disk error")
	if _, err := m.Load(testCtx(t), 99); !IsLoadFailure(err) {
		t.Fatalf("expected load failure, got %v", err)
	}
	h := m.Health()
	if !h.ModelLoaded || h.Acceleration != AccelGPU {
		t.Fatalf("prior model should remain installed: %+v", h)
	}
	if b.Loaded()[0].Closed() {
		t.Fatalf("prior model must not be released")
	}
	st := m.Status()
	if st.State != string(StateReady) || st.LastError == "" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLoad_ReplacesAndReleasesPrevious(t *testing.T) {
	m, b := loadedManager(t, &enginetest.Model{}, ManagerConfig{})
	b.FailGPU = true
	res, err := m.Load(testCtx(t), 99)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res.Acceleration != AccelCPU {
		t.Fatalf("expected CPU after fallback, got %v", res.Acceleration)
	}
	loaded := b.Loaded()
	if len(loaded) != 2 || !loaded[0].Closed() || loaded[1].Closed() {
		t.Fatalf("expected first model released and second installed")
	}
	if st := m.Status(); st.LoadsTotal != 2 || st.LastError != "" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLoad_WaitsForInflightGeneration(t *testing.T) {
	block := make(chan struct{})
	m, b := loadedManager(t, &enginetest.Model{Script: []string{"a", "b"}, Block: block}, ManagerConfig{})

	g, err := m.Generate(testCtx(t), Request{Prompt: "one two", MaxTokens: 8, Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if it := <-g.Items(); it.Text != "a" {
		t.Fatalf("unexpected first item: %+v", it)
	}

	loaded := make(chan error, 1)
	go func() {
		_, err := m.Load(testCtx(t), 99)
		loaded <- err
	}()
	select {
	case err := <-loaded:
		t.Fatalf("load finished while a generation held the slot: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if b.Loaded()[0].Closed() {
		t.Fatalf("model released under a running generation")
	}

	close(block)
	texts, sum, gerr := drain(t, g)
	if gerr != nil || sum.Outcome != OutcomeCompleted || len(texts) != 1 || texts[0] != "b" {
		t.Fatalf("unexpected generation result texts=%v sum=%+v err=%v", texts, sum, gerr)
	}
	if err := <-loaded; err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !b.Loaded()[0].Closed() {
		t.Fatalf("replaced model should be released")
	}
}

func TestStatus_Unloaded(t *testing.T) {
	m := newTestManager(t, &enginetest.Backend{}, ManagerConfig{MaxConcurrent: 3})
	st := m.Status()
	if st.State != "unloaded" || st.Acceleration != "None" || st.LoadedAtUnix != 0 || st.MaxConcurrent != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.ModelPath != m.ModelPath() || st.ServerTimeUnix == 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}
