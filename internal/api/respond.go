package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"immobilier-assistant/internal/usecase"
)

const maxBodyBytes = 64 << 10

// ErrInvalidBody reports a request body that is not the expected JSON.
var ErrInvalidBody = errors.New("api: invalid request body")

// StatusFor maps an error to its HTTP status and response body. Errors that
// are not usecase errors are reported as INTERNAL_ERROR.
func StatusFor(err error) (int, ErrorResponse) {
	if errors.Is(err, ErrInvalidBody) {
		return http.StatusBadRequest, ErrorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body"}
	}
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, ErrorResponse{Error: string(usecase.ErrorInternal)}
	}
	body := ErrorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, body
	case usecase.ErrorNotFound:
		return http.StatusNotFound, body
	case usecase.ErrorSessionBusy:
		return http.StatusConflict, body
	case usecase.ErrorInsufficientInput:
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: string(usecase.ErrorInternal), Reason: ucErr.Reason}
	}
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return nil
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// RespondError writes the mapped error body. Server-side failures are logged.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
	}
	RespondJSON(w, status, body)
}
