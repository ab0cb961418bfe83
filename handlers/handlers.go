package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/upb/patient-service/utils"
)

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller should
// continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		if writeErr := utils.WriteBadRequest(w, err.Error(), nil); writeErr != nil {
			logger.Error("failed to write bad request response", zap.Error(writeErr))
		}
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// parsePage reads the skip and limit query parameters. Missing values are 0.
func parsePage(r *http.Request) (skip, limit int, err error) {
	query := r.URL.Query()
	if skip, err = parseNonNegative(query.Get("skip"), "skip"); err != nil {
		return 0, 0, err
	}
	if limit, err = parseNonNegative(query.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func parseNonNegative(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
