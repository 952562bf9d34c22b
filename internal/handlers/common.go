// Package handlers exposes the pattern engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dreamlog-backend/internal/middleware"
	"dreamlog-backend/pkg/api"
	appErrors "dreamlog-backend/pkg/errors"
)

// maxBodyBytes bounds request bodies. Dream text is capped well below this by validation.
const maxBodyBytes = 64 << 10

var validate = validator.New()

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.NewValidation("request body is required")
		}
		return appErrors.NewValidation(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return appErrors.NewValidation("invalid fields: " + strings.Join(fields, ", "))
		}
		return appErrors.NewValidation(err.Error())
	}
	return nil
}

// handleServiceError logs and converts service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	fields := []zap.Field{
		zap.String("requestID", middleware.GetRequestIDFromRequest(r)),
		zap.String("path", r.URL.Path),
		zap.String("errorType", string(appErrors.TypeOf(err))),
		zap.Error(err),
	}
	switch appErrors.TypeOf(err) {
	case appErrors.ErrorTypeValidation, appErrors.ErrorTypeNotFound:
		logger.Debug("request rejected", fields...)
	default:
		logger.Error("request failed", fields...)
	}
	api.FromError(w, err)
}
