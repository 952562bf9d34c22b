// Package api provides standardized helper functions for HTTP API responses.
package api

import (
	"encoding/json"
	"net/http"

	appErrors "dreamlog-backend/pkg/errors"
)

// Success sends a standardized successful HTTP response with optional JSON data.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response with consistent JSON format.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// FromError maps an application error onto a status code and writes it.
func FromError(w http.ResponseWriter, err error) {
	switch appErrors.TypeOf(err) {
	case appErrors.ErrorTypeValidation:
		Error(w, http.StatusBadRequest, err.Error())
	case appErrors.ErrorTypeNotFound:
		Error(w, http.StatusNotFound, err.Error())
	case appErrors.ErrorTypePersistenceConflict:
		Error(w, http.StatusConflict, "conflicting update, retry the request")
	case appErrors.ErrorTypePersistenceFailure, appErrors.ErrorTypeCollaboratorUnavailable:
		Error(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
