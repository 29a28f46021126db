// Package context holds the request-scoped values the middleware extracts
// and the handlers, logs and error bodies read back.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	userIDKey
	routeKey
	remoteIPKey
)

// RequestInfo is what the context middleware records for every request.
type RequestInfo struct {
	RequestID string
	UserID    string
	Route     string
	RemoteIP  string
}

// WithRequestInfo stores every non-empty field of info on ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	if info.RequestID != "" {
		ctx = SetRequestID(ctx, info.RequestID)
	}
	if info.UserID != "" {
		ctx = SetUserID(ctx, info.UserID)
	}
	if info.Route != "" {
		ctx = context.WithValue(ctx, routeKey, info.Route)
	}
	if info.RemoteIP != "" {
		ctx = context.WithValue(ctx, remoteIPKey, info.RemoteIP)
	}
	return ctx
}

func get(ctx context.Context, k key) string {
	value, _ := ctx.Value(k).(string)
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, requestIDKey)
}

// SetUserID records the actor of the request. It is used for audit
// attribution of document writes, never for authorization.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return get(ctx, userIDKey)
}

func GetRoute(ctx context.Context) string {
	return get(ctx, routeKey)
}

func GetRemoteIP(ctx context.Context) string {
	return get(ctx, remoteIPKey)
}
