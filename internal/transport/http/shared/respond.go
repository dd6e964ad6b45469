// Package shared holds the response helpers every handler uses so the wire
// format stays uniform.
package shared

import (
	"encoding/json"
	"net/http"

	"registrar/pkg/domainerrors"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError maps a coded error to its HTTP status and envelope. Errors
// without a code surface as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	WriteJSON(w, domainerrors.HTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: domainerrors.MessageOf(err),
	})
}
