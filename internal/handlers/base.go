package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/services/configstore"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/schema"
	"github.com/Ramsey-B/clover/pkg/validation"
)

// AnonymousActor is recorded as updated_by when the request names no user
const AnonymousActor = "anonymous"

// ValidationErrorResponse is the 400 body for a rejected document
type ValidationErrorResponse struct {
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields"`
}

// ConflictResponse is the 409 body for a stale write
type ConflictResponse struct {
	Message         string `json:"message"`
	Key             string `json:"key"`
	CurrentVersion  int    `json:"currentVersion"`
	ExpectedVersion int    `json:"expectedVersion"`
}

// GetActor returns the user the request acts for
func GetActor(c echo.Context) string {
	if user := appctx.GetUserID(c.Request().Context()); user != "" {
		return user
	}
	return AnonymousActor
}

// ParseVersion parses a positive version number from a path parameter
func ParseVersion(c echo.Context, param string) (int, error) {
	version, err := strconv.Atoi(c.Param(param))
	if err != nil || version < 1 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a positive integer", param)
	}
	return version, nil
}

// NoStore marks the response as uncacheable
func NoStore(c echo.Context) {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
}

// SetDocumentVersion exposes the served version as a response header
func SetDocumentVersion(c echo.Context, version int) {
	c.Response().Header().Set(middleware.HeaderDocumentVersion, strconv.Itoa(version))
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// WriteError renders validation failures and version conflicts with their
// structured bodies. Anything else goes to the echo error handler.
func WriteError(c echo.Context, err error) error {
	var invalid *schema.ValidationError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Message: invalid.Error(),
			Fields:  invalid.Fields,
		})
	}

	var conflict *configstore.VersionConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, ConflictResponse{
			Message:         conflict.Error(),
			Key:             conflict.Key,
			CurrentVersion:  conflict.CurrentVersion,
			ExpectedVersion: conflict.ExpectedVersion,
		})
	}

	return err
}
