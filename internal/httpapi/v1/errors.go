package v1

import (
	"errors"
	"net/http"

	"github.com/tinoosan/paytrace/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeDomainErr maps sentinel errors to HTTP statuses.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	case errors.Is(err, errs.ErrNoData):
		unprocessable(w, err.Error(), "no_data")
	case errors.Is(err, errs.ErrUnbalanced):
		unprocessable(w, err.Error(), "unbalanced_voucher")
	case errors.Is(err, errs.ErrInvalidTopology):
		unprocessable(w, err.Error(), "invalid_topology")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "")
	}
}
