package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Service string `json:"service,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGatewayError maps a gateway error to its HTTP status and emits the
// structured error body. Internal errors are not echoed to the caller.
func writeGatewayError(w http.ResponseWriter, log logger.Logger, err error, service string) {
	status := domain.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrReloadFailure) {
		log.Error("unexpected gateway error",
			logger.String("service", service),
			logger.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Service: service})
}
