package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader is echoed on every response and copied into error meta.
const RequestIDHeader = "X-Request-Id"

// Codes shared by every API namespace. Modules define their own domain codes.
const (
	CodeInternal         = "INTERNAL"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeOwnerRequired    = "OWNER_REQUIRED"
	CodeBadRequest       = "BAD_REQUEST"
)

// ErrorEnvelope is the body of every non-2xx JSON response.
type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// RequestID returns the id already set on the response, falling back to the
// incoming header and finally a fresh UUID. The result is set on w.
func RequestID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(w.Header().Get(RequestIDHeader)); id != "" {
		return id
	}
	id := ""
	if r != nil {
		id = strings.TrimSpace(r.Header.Get(RequestIDHeader))
	}
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	return id
}

// Error writes an ErrorEnvelope whose meta always carries request_id.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) error {
	if w == nil {
		return nil
	}
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["request_id"] = RequestID(w, r)
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    out,
	})
}
