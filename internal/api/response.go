package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks client-side faults that are not domain sentinels.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps decode and missing-field faults to 400, missing runs to 404,
// everything else to 500.
func statusFor(err error) int {
	var (
		syntaxErr  *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
		horizonErr *domain.UnknownHorizonError
	)
	switch {
	case errors.Is(err, domain.ErrMissingField),
		errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.As(err, &horizonErr):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body. An empty body decodes to the zero value,
// so every optional field takes its default.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}
