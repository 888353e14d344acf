// Package errors provides standardized error handling for packedit.
// It defines the error kinds that cross the command bus, typed errors that
// carry the entry path or config parameter involved, and helpers to inspect
// a wrapped chain by kind.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// Entry error kinds
	NotFound
	DecodeError
	EncodeError
	UnsupportedType
	ExtractionError
	// Bus error kinds
	BusClosed
	InvalidState
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Disk error kinds
	FileOperationFailed
)

var kindNames = map[ErrorKind]string{
	Unknown:             "Unknown",
	NotFound:            "NotFound",
	DecodeError:         "DecodeError",
	EncodeError:         "EncodeError",
	UnsupportedType:     "UnsupportedType",
	ExtractionError:     "ExtractionError",
	BusClosed:           "BusClosed",
	InvalidState:        "InvalidState",
	InvalidConfig:       "InvalidConfig",
	ConfigNotFound:      "ConfigNotFound",
	FileOperationFailed: "FileOperationFailed",
}

// String returns the name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Common error constants for frequently occurring errors
var (
	ErrBusClosed    = &ApplicationError{msg: "command bus closed", kind: BusClosed}
	ErrInvalidState = &ApplicationError{msg: "invalid state", kind: InvalidState}
	ErrNotFound     = NewEntryError("entry not found", "", NotFound, nil)
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrBusClosed) holds
// for every BusClosed error regardless of message.
func (e *ApplicationError) Is(target error) bool {
	switch t := target.(type) {
	case *ApplicationError:
		return t.kind != Unknown && t.kind == e.kind
	case *EntryError:
		return t.path == "" && t.kind == e.kind
	}
	return false
}

// EntryError represents errors related to one archive entry
type EntryError struct {
	ApplicationError
	path string
}

// NewEntryError creates a new entry error
func NewEntryError(msg string, path string, kind ErrorKind, err error) *EntryError {
	return &EntryError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the entry error message
func (e *EntryError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Is matches a path-less sentinel of the same kind, e.g. ErrNotFound
func (e *EntryError) Is(target error) bool {
	if t, ok := target.(*EntryError); ok {
		return t.path == "" && t.kind == e.kind
	}
	return e.ApplicationError.Is(target)
}

// Path returns the entry path associated with the error
func (e *EntryError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// NewKind creates a new error of the given kind
func NewKind(kind ErrorKind, format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: kind,
	}
}

// Wrap wraps an existing error with additional context. The kind of the
// wrapped error is kept.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: KindOf(err),
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: KindOf(err),
	}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first typed error in err's chain, or
// Unknown when there is none.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether err's chain carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound checks if the error is an entry not found error
func IsNotFound(err error) bool {
	return IsKind(err, NotFound)
}

// IsBusClosed checks if the error reports a terminated backend owner
func IsBusClosed(err error) bool {
	return IsKind(err, BusClosed)
}

// IsUnsupportedType checks if the error is an unsupported type error
func IsUnsupportedType(err error) bool {
	return IsKind(err, UnsupportedType)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}
