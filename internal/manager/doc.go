// Package manager owns the single model slot and coordinates everything that
// touches it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, lock-free getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: slot, descriptor, request and summary types.
//   - errors.go: error kinds and helpers (IsNotFound, IsModelNotLoaded, ...).
//   - slot.go: readers-writer guard over the slot, bounded by max concurrency.
//   - load.go / unload.go: lifecycle with GPU to CPU fallback.
//   - generate.go / worker.go: generation handles and the decode loop.
//   - cancel.go: the global cancellation epoch.
//   - metrics.go: usage counters and Prometheus collectors.
//   - events.go, status_report.go, sanity.go: observability.
//
// A load or unload waits for every running generation to release the slot;
// generations admitted afterwards see the new model. Cancel never waits: it
// advances an epoch that running generations poll between decode steps.
package manager
