package http

import (
	"encoding/json"
	"net/http"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/logger"
)

type errorBody struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps error kinds onto HTTP status codes. Internal errors get a
// generic message; the details stay in the log.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindOutOfStock, domain.KindConflict:
		status = http.StatusConflict
	}

	message := err.Error()
	if kind == domain.KindInternal {
		logger.Error("request failed", "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: message}})
}
