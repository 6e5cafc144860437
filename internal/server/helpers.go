package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteError writes a JSON error response, carrying the request's
// correlation ID when present.
func WriteError(w http.ResponseWriter, r *http.Request, status int, format string, args ...any) {
	WriteJSON(w, status, &ErrorResponse{
		Error:   fmt.Sprintf(format, args...),
		Code:    status,
		TraceID: correlationID(r),
	})
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func correlationID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(correlationHeader)
}
