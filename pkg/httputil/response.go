// Package httputil provides HTTP handler utilities for the uniform response
// envelope, JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Result is the uniform response envelope returned by every endpoint:
// code 200 means success, anything else carries a human-readable failure
// message and no data.
type Result struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessMessage is the default message attached to successful envelopes.
const SuccessMessage = "成功"

// WriteResult writes an envelope with the given HTTP status and body
func WriteResult(w http.ResponseWriter, status int, result Result) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(result)
}

// WriteOK writes a successful envelope with data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteResult(w, http.StatusOK, Result{Code: http.StatusOK, Message: SuccessMessage, Data: data})
}

// WriteOKMessage writes a successful envelope with a custom message and data
func WriteOKMessage(w http.ResponseWriter, message string, data interface{}) error {
	return WriteResult(w, http.StatusOK, Result{Code: http.StatusOK, Message: message, Data: data})
}

// WriteFailure writes a failure envelope; the envelope code doubles as the
// HTTP status code.
func WriteFailure(w http.ResponseWriter, code int, message string) {
	WriteResult(w, code, Result{Code: code, Message: message}) //nolint:errcheck
}

// WriteBadRequest writes a business/validation failure (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an authentication failure (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes an authorization failure (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusForbidden, message)
}

// WriteNotFound writes a missing-resource failure (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusNotFound, message)
}

// WriteInternalError writes a generic 500 envelope. The error detail is for
// the server log only and never reaches the caller.
func WriteInternalError(w http.ResponseWriter, err error) {
	_ = err
	WriteFailure(w, http.StatusInternalServerError, "系统内部错误")
}
