// Package apperr carries an HTTP-style status alongside service errors so
// controllers can translate them without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is returned by services for every expected failure.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Soft reports whether the caller should retry later instead of treating the
// failure as final.
func (e *AppError) Soft() bool {
	return e.Code == http.StatusAccepted
}

func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message)
}

// Pending marks a retry-later outcome, e.g. a payment that is not settled yet.
func Pending(message string) *AppError {
	return New(http.StatusAccepted, message)
}

func BadGateway(message string, err error) *AppError {
	return Wrap(http.StatusBadGateway, message, err)
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the status carried by err, 500 for anything unexpected.
func CodeOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

func IsSoft(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Soft()
}
