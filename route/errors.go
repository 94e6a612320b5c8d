package route

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vitalvas/oasroute/model"
	"github.com/vitalvas/oasroute/openapi"
)

// Registration errors. Route, blueprint and view registration panics with
// an error wrapping one of these; the document builder returns them.
var (
	// ErrDuplicateRoute is raised when a method and path pair is already
	// served by a different handler.
	ErrDuplicateRoute = errors.New("route: duplicate route")

	// ErrSelfRegistration is raised when a blueprint is registered on itself.
	ErrSelfRegistration = errors.New("route: blueprint cannot register itself")

	// ErrInvalidModel is raised when a declared input cannot serve its source.
	ErrInvalidModel = model.ErrInvalidModel

	// ErrDuplicateSource is raised when an input source is declared twice.
	ErrDuplicateSource = errors.New("route: duplicate input source")

	// ErrInvalidView is raised for view classes without usable handler methods.
	ErrInvalidView = errors.New("route: invalid view")

	// ErrComponentConflict is raised when two different schemas share a
	// component name.
	ErrComponentConflict = openapi.ErrComponentConflict

	// ErrInvalidDocument is returned when the built document fails validation.
	ErrInvalidDocument = openapi.ErrInvalidDocument
)

// HTTPError is an error carrying the status code the default error
// handler responds with.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// NewHTTPError creates an HTTPError. An empty message falls back to the
// status text.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// errorBody is the JSON shape written for handler errors.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// registrationPanic wraps err with sentinel and panics.
func registrationPanic(sentinel error, format string, args ...any) {
	panic(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// mustRegister panics with err unless it is nil. Duplicate operations are
// reported as duplicate routes.
func mustRegister(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, openapi.ErrDuplicateOperation) {
		panic(fmt.Errorf("%w: %w", ErrDuplicateRoute, err))
	}
	panic(err)
}
