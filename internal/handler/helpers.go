package handler

import (
	"net/http"

	"promptvault/internal/domain"
	"promptvault/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusCode(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal server error"
	}
	httputil.RespondError(w, status, detail, domain.Code(err))
}

// PathParam extracts a path parameter, responding 400 when it is empty
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required", domain.Code(domain.ErrValidation))
		return "", false
	}
	return value, true
}
