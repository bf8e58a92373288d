package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mindgrove-app/mindgrove/internal/domain"
)

// maxJSONBodyBytes caps JSON request bodies. File uploads go through
// multipart handling with their own limit.
const maxJSONBodyBytes = 1 << 20 // 1 MB

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a JSON request body into dst. Unknown fields are
// rejected so typos in client payloads fail loudly instead of silently.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("", "Request body is required.")
		}
		return domain.Invalid("", "Request body is not valid JSON.")
	}
	return nil
}
