package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable public error codes. Clients key off these; internal error detail
// never crosses this boundary.
const (
	CodeCourseNotFound     = "COURSE_NOT_FOUND"
	CodeLessonNotFound     = "LESSON_NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodePrerequisiteLocked = "PREREQUISITE_LOCKED"
	CodeGenerationFailed   = "GENERATION_FAILED"
	CodeInternal           = "INTERNAL"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// From maps any error to a public *Error. Unknown errors collapse to a
// generic INTERNAL code so handlers can never leak internals.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, errors.New("internal error"))
}
