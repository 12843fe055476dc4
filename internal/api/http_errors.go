package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// respondDomainError writes a domain error with its mapped HTTP status.
// Errors without a domain category become plain 500s.
func respondDomainError(w http.ResponseWriter, err error) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, httpStatusForDomainError(domErr), map[string]string{
		"error": domErr.Message,
		"code":  domErr.Code,
	})
}

func httpStatusForDomainError(err *core.DomainError) int {
	switch err.Category {
	case core.ErrCatValidation:
		return http.StatusBadRequest
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
