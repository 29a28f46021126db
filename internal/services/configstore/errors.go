package configstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

var ErrUnknownDocument = errors.New("unknown config document")

// VersionConflictError is returned by Put when the stored version is not the
// one the caller read. Nothing was written.
type VersionConflictError struct {
	Key             string
	ExpectedVersion int
	CurrentVersion  int
}

func (e *VersionConflictError) Error() string {
	if e.ExpectedVersion == 0 {
		return fmt.Sprintf("config document %q already exists at version %d", e.Key, e.CurrentVersion)
	}
	return fmt.Sprintf("config document %q was modified: expected version %d, current version %d", e.Key, e.ExpectedVersion, e.CurrentVersion)
}

func (e *VersionConflictError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error()).
		AddMetaValue("key", e.Key).
		AddMetaValue("currentVersion", e.CurrentVersion).
		AddMetaValue("expectedVersion", e.ExpectedVersion)
}

func IsVersionConflict(err error) bool {
	var conflict *VersionConflictError
	return errors.As(err, &conflict)
}

func unknownDocumentError(key string) error {
	return httperror.NewHTTPError(http.StatusNotFound, ErrUnknownDocument.Error()).AddMetaValue("key", key)
}
