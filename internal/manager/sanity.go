package manager

import "inferd/internal/common/fsutil"

// SanityReport describes runtime checks for the engine backend and weight file.
type SanityReport struct {
	Backend    string `json:"backend"`
	GPUOffload bool   `json:"gpu_offload"`
	ModelPath  string `json:"model_path,omitempty"`
	ModelFound bool   `json:"model_found"`
	Error      string `json:"error,omitempty"`
}

// SanityCheck reports whether a load could succeed right now.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{ModelPath: m.modelPath}
	if m.backend == nil {
		r.Error = "no engine backend configured"
		return r
	}
	r.Backend = m.backend.Name()
	r.GPUOffload = m.backend.SupportsGPUOffload()
	if err := fsutil.RegularFile(m.modelPath); err != nil {
		r.Error = err.Error()
		return r
	}
	r.ModelFound = true
	return r
}
