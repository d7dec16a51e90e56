package debugsrv

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// envelope is the standard response shape, adapted in spirit from
// wilke-GoWe's internal/server/response.go (pkg/model.Response): a
// request id, a timestamp, a status, and either data or an error.
type envelope struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newRequestID() string {
	return "req_" + uuid.New().String()[:8]
}

func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, "")
}

func respondError(w http.ResponseWriter, reqID string, status int, msg string) {
	respondJSON(w, status, reqID, nil, msg)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, errMsg string) {
	resp := envelope{
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	if errMsg != "" {
		resp.Status = "error"
		resp.Error = errMsg
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
