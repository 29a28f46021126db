package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/context"
)

const (
	// HeaderUserID names the acting user, recorded as updated_by on writes
	HeaderUserID = "X-User-ID"
	// HeaderDocumentVersion carries the version a config response was served at
	HeaderDocumentVersion = "X-Document-Version"

	maxUserIDLength = 128
)

// Context records the request id, acting user and route on the request
// context and echoes the request id back in the response.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := context.WithRequestInfo(req.Context(), context.RequestInfo{
				RequestID: requestID,
				UserID:    userID(req.Header.Get(HeaderUserID)),
				Route:     req.Method + " " + req.URL.Path,
				RemoteIP:  c.RealIP(),
			})
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func userID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) <= maxUserIDLength {
		return id
	}
	id = id[:maxUserIDLength]
	for !utf8.ValidString(id) {
		id = id[:len(id)-1]
	}
	return id
}
