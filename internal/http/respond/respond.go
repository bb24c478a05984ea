// Package respond holds the JSON response helpers shared by the API
// handlers, including the mapping from error categories to HTTP status
// codes.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/receiptwise/receiptwise/internal/apperr"
)

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

// Error writes err as a JSON error body with the status its category
// maps to.
func Error(w http.ResponseWriter, err error) {
	translated := apperr.Translate(err)

	JSON(w, statusFor(translated.Kind), errorBody{
		Error: translated.Message,
		Kind:  translated.Kind,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindPayment:
		return http.StatusPaymentRequired
	case apperr.KindFile:
		return http.StatusRequestEntityTooLarge
	case apperr.KindNetwork:
		return http.StatusBadGateway
	case apperr.KindServer, apperr.KindDatabase:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
