// Package api exposes simulation runs over HTTP: routing, request binding and
// the JSON envelope every endpoint answers with.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	simerrors "lumina/fraud-sim/internal/errors"
)

// envelope wraps every JSON body. Exactly one of Data and Error is set.
type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ─── Success ──────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http: response encoding failed", "status", status, "error", err)
	}
}

func ok(w http.ResponseWriter, data any)      { writeJSON(w, http.StatusOK, envelope{Data: data}) }
func created(w http.ResponseWriter, data any) { writeJSON(w, http.StatusCreated, envelope{Data: data}) }
func noContent(w http.ResponseWriter)         { w.WriteHeader(http.StatusNoContent) }

// ─── Errors ───────────────────────────────────────────────────────────────────

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, code, message)
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", message)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// writeSimError maps a simulation error onto a status code. Bad parameters
// are 422, bad arguments 400, everything else 500.
func writeSimError(w http.ResponseWriter, err error) {
	var se *simerrors.SimError
	if errors.As(err, &se) {
		switch se.Category {
		case simerrors.ErrCategoryConfig:
			writeError(w, http.StatusUnprocessableEntity, se.Code, se.Message)
			return
		case simerrors.ErrCategoryArgument:
			badRequest(w, se.Code, se.Message)
			return
		}
	}
	slog.Error("simulation failed", "error", err)
	internalError(w)
}
