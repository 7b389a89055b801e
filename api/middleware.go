package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"voting-ledger/fault"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging tags each request with an id and logs its outcome
func withLogging(log *logger.L, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Infof("%s %s %s -> %d in %dms", requestID, r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

// withCORS lets the browser client call the API from another origin
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-API-Key")

		// preflight
		if r.Method == http.MethodOptions {
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects requests without the current admin key
func requireAdmin(key *AdminKey, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !key.Matches(r.Header.Get(adminKeyHeader)) {
			writeError(w, fault.ErrInvalidAdminKey)
			return
		}
		next(w, r)
	}
}

// rateLimited sheds requests beyond the limiter's budget
func rateLimited(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, fault.ErrRateLimited)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Criticalf("failed to encode JSON response: %s", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: message,
	})
}

// errorStatus maps an error class to its HTTP status
func errorStatus(err error) int {
	switch {
	case fault.IsErrValidation(err):
		return http.StatusBadRequest
	case fault.IsErrNotFound(err):
		return http.StatusNotFound
	case fault.IsErrUnauthorized(err):
		return http.StatusUnauthorized
	case fault.IsErrConflict(err):
		return http.StatusConflict
	case fault.IsErrClosed(err):
		return http.StatusForbidden
	case fault.IsErrRateLimit(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func parseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
