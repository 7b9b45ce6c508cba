package slot

import "os"

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	LlamaBuilt       bool     `json:"llama_built"`
	MissingArtifacts []string `json:"missing_artifacts,omitempty"`
}

// SanityCheck validates that the engine is built in and artifacts are still
// present on disk. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{LlamaBuilt: llamaBuilt}
	for _, a := range m.Artifacts() {
		if fi, err := os.Stat(a.Path); err != nil || fi.IsDir() {
			r.MissingArtifacts = append(r.MissingArtifacts, a.Path)
		}
	}
	return r
}
