package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/logging"
)

const maxBodyBytes = 1 << 20

// response is the JSON envelope every endpoint answers with.
type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are gone, nothing to do on encode failure
	_ = json.NewEncoder(w).Encode(v)
}

// appError is the HTTP shape of a domain error.
type appError struct {
	Status  int
	Code    string
	Message string
}

// toAppError maps sentinels from internal/common onto statuses. Unauthorized
// and Forbidden carry constant messages so they never leak which check failed.
func toAppError(err error) appError {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return appError{http.StatusBadRequest, "INVALID_INPUT", err.Error()}
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return appError{http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials"}
	case errors.Is(err, common.ErrForbidden):
		return appError{http.StatusForbidden, "FORBIDDEN", "insufficient permissions"}
	case errors.Is(err, common.ErrorNotFound):
		return appError{http.StatusNotFound, "NOT_FOUND", "user not found"}
	case errors.Is(err, common.ErrConflict):
		return appError{http.StatusConflict, "ALREADY_EXISTS", "username or email already registered"}
	case errors.Is(err, common.ErrTooManyRequests):
		return appError{http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests, slow down"}
	case errors.Is(err, common.ErrStoreUnavailable):
		return appError{http.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable"}
	default:
		return appError{http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, log logging.Logger) {
	ae := toAppError(err)

	switch ae.Status {
	case http.StatusInternalServerError:
		log.Error(r.Context(), "internal error", "error", err, "method", r.Method, "path", r.URL.Path)
	case http.StatusServiceUnavailable:
		log.Warn(r.Context(), "backend unavailable", "error", err, "path", r.URL.Path)
	}

	writeJSON(w, ae.Status, response{Error: &errorResponse{
		Code:      ae.Code,
		Message:   ae.Message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// On failure it writes the 400 response itself and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: &errorResponse{
			Code:    "INVALID_INPUT",
			Message: fmt.Sprintf("invalid request body: %v", err),
		}})
		return false
	}

	if err := validate(dst); err != nil {
		var ve *validationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, response{Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  ve.Fields(),
			}})
			return false
		}
		writeJSON(w, http.StatusBadRequest, response{Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()}})
		return false
	}
	return true
}
