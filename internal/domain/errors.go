package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is returned by login when the email is unknown or
// the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

type NotFoundError struct {
	Resource string
	Keys     []string
	Err      error
}

func (e NotFoundError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "resource"
	}
	if len(e.Keys) > 0 {
		return fmt.Sprintf("%s not found: %s", resource, strings.Join(e.Keys, ", "))
	}
	return fmt.Sprintf("%s not found", resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation error"
	}
}

// ConflictError covers duplicate unique fields and seat double-booking.
// Seats lists the offending seat labels so the caller can resubmit without them.
type ConflictError struct {
	Resource string
	Msg      string
	Seats    []string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Action   string
	Resource string
}

func (e ForbiddenError) Error() string {
	if e.Action == "" || e.Resource == "" {
		return "forbidden"
	}
	return fmt.Sprintf("not allowed to %s %s", e.Action, e.Resource)
}

// SeatsUnavailable builds the conflict returned when reserving seats that are already booked.
func SeatsUnavailable(labels []string) ConflictError {
	noun := "seat"
	verb := "is"
	if len(labels) > 1 {
		noun, verb = "seats", "are"
	}
	return ConflictError{
		Resource: "seat",
		Msg:      fmt.Sprintf("%s %s %s already booked", noun, strings.Join(labels, ", "), verb),
		Seats:    labels,
	}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}
