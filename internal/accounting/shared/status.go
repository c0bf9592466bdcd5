package shared

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error onto the status code the ledger API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrJournalNotFound), errors.Is(err, ErrRuleNotFound):
		return http.StatusNotFound
	}
	switch Classify(err) {
	case ClassConfiguration:
		return http.StatusUnprocessableEntity
	case ClassData:
		return http.StatusBadRequest
	case ClassIntegrity, ClassConcurrency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
