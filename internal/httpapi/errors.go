package httpapi

import (
	"encoding/json"
	"net/http"

	"trvd/internal/pipeline"
	"trvd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeExecuteError writes a pipeline failure, attaching the error kind, the
// failed phase and the partial trace when the execution got far enough to
// produce one.
func writeExecuteError(w http.ResponseWriter, status int, err error, partial *types.PipelineResult) {
	resp := types.ErrorResponse{
		Error: err.Error(),
		Kind:  pipeline.Kind(err),
		Code:  status,
	}
	if phase, ok := pipeline.FailedPhase(err); ok {
		resp.Phase = string(phase)
	}
	if partial != nil {
		resp.ID = partial.ID
		resp.Trace = partial.Trace
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
