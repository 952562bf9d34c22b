package middleware

import (
	"context"
	"net/http"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey    contextKey = "requestID"
	RequestIDHeader            = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestID tags every request with an id, echoed back in X-Request-ID. A caller-supplied id
// wins, then the API Gateway request id, then a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = gatewayRequestID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID)))
	})
}

func gatewayRequestID(ctx context.Context) string {
	if proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(ctx); ok {
		return proxyCtx.RequestID
	}
	return ""
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRequestIDFromRequest is GetRequestID for r's context.
func GetRequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
