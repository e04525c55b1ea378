package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// failureEnvelope is the fixed error response shape. External callers match
// on these exact fields.
type failureEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeFailure writes a {success:false, message} response with the given
// status code.
func writeFailure(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, failureEnvelope{Success: false, Message: message})
}

// writeServerError writes the deliberately generic 500 body; internals stay
// in the logs.
func writeServerError(w http.ResponseWriter) {
	writeFailure(w, http.StatusInternalServerError, "Server error")
}

func writeNotAuthenticated(w http.ResponseWriter) {
	writeFailure(w, http.StatusUnauthorized, "Not authenticated")
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}
