package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
)

const maxJSONBody = 1 << 20

// StatusForKind translates an error kind into an HTTP status.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindConflict, domain.KindUnavailable:
		return http.StatusConflict
	case domain.KindPrecondition:
		return http.StatusUnprocessableEntity
	case domain.KindStoreUnavailable, domain.KindLedgerUnavailable, domain.KindLedgerRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
	RequestID string           `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusForKind(kind)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path,
			"kind", kind, "error", err, "requestID", requestID(r.Context()))
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg, RequestID: requestID(r.Context())}})
}

// readJSON decodes a single JSON object and rejects unknown fields.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewError(domain.KindValidation, "request body is empty")
		}
		return domain.WrapError(domain.KindValidation, err, "malformed request body")
	}
	return nil
}
