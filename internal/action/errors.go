package action

import (
	"errors"
	"net/http"

	"github.com/marmos91/vfinder/pkg/storage"
)

// Client-facing errors raised by the dispatcher and the handlers.
var (
	ErrInvalidMethod   = errors.New("invalid action or method")
	ErrReadOnlyStorage = errors.New("this storage is read-only")
	ErrPathNotFound    = errors.New("the specified path does not exist")
	ErrFileExists      = errors.New("the file/folder already exists")
	ErrInvalidFilename = errors.New("invalid file name")
	ErrInvalidRequest  = errors.New("invalid request")
)

// StatusCode maps an error returned by Dispatch to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidMethod):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrReadOnlyStorage), errors.Is(err, storage.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, ErrPathNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrUnknownStorage):
		return http.StatusNotFound
	case errors.Is(err, ErrFileExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFilename),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, storage.ErrNotDirectory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text shown to the client for err. Server errors are
// not echoed verbatim.
func Message(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
