package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/pkg/api"
)

// Identity headers set by the authenticating gateway in front of this service.
const (
	UserIDHeader = "X-User-ID"
	TierHeader   = "X-User-Tier"
)

const (
	userIDKey contextKey = "userID"
	tierKey   contextKey = "tier"
)

// Identity requires an authenticated user id and attaches it, with the subscription tier, to the
// request context. Behind API Gateway the Lambda authorizer context ("sub", "tier") is used;
// otherwise the gateway headers are. A missing or unknown tier is treated as free.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, rawTier := fromAuthorizer(r.Context())
		if userID == "" {
			userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
			rawTier = r.Header.Get(TierHeader)
		}
		if userID == "" {
			api.Error(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, dream.ParseTier(rawTier))))
	})
}

func fromAuthorizer(ctx context.Context) (userID, tier string) {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(ctx)
	if !ok || proxyCtx.Authorizer == nil || proxyCtx.Authorizer.Lambda == nil {
		return "", ""
	}
	userID, _ = proxyCtx.Authorizer.Lambda["sub"].(string)
	tier, _ = proxyCtx.Authorizer.Lambda["tier"].(string)
	return strings.TrimSpace(userID), tier
}

// WithIdentity stores a user id and tier in ctx.
func WithIdentity(ctx context.Context, userID string, tier dream.Tier) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tierKey, tier)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// TierFrom returns the caller's tier, defaulting to free.
func TierFrom(ctx context.Context) dream.Tier {
	if t, ok := ctx.Value(tierKey).(dream.Tier); ok {
		return t
	}
	return dream.TierFree
}
