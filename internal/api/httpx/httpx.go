package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/metrics"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteLedgerError maps a ledger error kind to an HTTP status. Anything
// that is not a ledger error is an internal error; the raw cause stays
// out of the response body.
func WriteLedgerError(w http.ResponseWriter, err error) {
	le, ok := ledger.AsError(err)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	metrics.LedgerRejections.WithLabelValues(le.Code).Inc()

	status := http.StatusBadRequest
	switch le.Kind {
	case ledger.KindAuthorization:
		status = http.StatusForbidden
	case ledger.KindStateConflict:
		status = http.StatusConflict
		if le.Code == "not_found" {
			status = http.StatusNotFound
		}
	case ledger.KindFunds:
		status = http.StatusUnprocessableEntity
	}
	WriteError(w, status, le.Code, le.Message, nil)
}
