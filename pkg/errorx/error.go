package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Code    Code
	Message string
}

func New(code Code, format string, args ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so callers can match with
// errors.Is(err, errorx.New(errorx.AlreadyClaimed, "")).
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code
}

// HasCode reports whether err is an errorx.Error with the given code.
func HasCode(err error, code Code) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == code
}

func HTTPStatus(err error) int {
	var e Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}

	if status, ok := httpStatuses[e.Code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
