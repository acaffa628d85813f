package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the single error envelope the builder API writes. Kind tells
// the UI how to present it (field errors, toast, re-login); Message is always
// human readable.
type ErrorBody struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// LoginPath is where the UI sends users whose session expired.
const LoginPath = "/api/login"

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody with the given status code.
func WriteError(w http.ResponseWriter, code int, body ErrorBody) {
	WriteJSON(w, code, body)
}

// WriteSessionExpired is the uniform unauthorized response: every 401 the UI
// sees has the same shape so it can show one message and redirect.
func WriteSessionExpired(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, ErrorBody{
		Kind:     "unauthorized",
		Message:  "You are logged out. Logging in again...",
		Redirect: LoginPath,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON decodes a request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
