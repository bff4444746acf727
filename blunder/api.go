// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package blunder provides error-handling wrappers
//
// These wrappers allow callers to provide additional information in Go errors
// while still conforming to the Go error interface.
//
// This package provides APIs to add errno information to regular Go errors,
// which is how the bptree package reports the outcome of an index operation:
// callers compare with Is() against the TreeError constants rather than
// matching error strings.
//
// This package is currently implemented on top of the ansel1/merry package:
//   https://github.com/ansel1/merry
//
//   merry comes with built-in support for adding information to errors:
//    - stacktraces
//    - overriding the error message
//    - end user error messages
//    - your own additional information
//
//   From merry godoc:
//     You can add any context information to an error with `e = merry.WithValue(e, "code", 12345)`
//     You can retrieve that value with `v, _ := merry.Value(e, "code").(int)`
package blunder

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/bptree/logger"
)

// Error constants for the bptree namespace.
//
// Each constant corresponds to the linux/POSIX errno (as defined in errno.h)
// closest in meaning, so an error round-trips naturally into any errno-shaped
// caller surface.
//
// NOTE: unix.Errno is used here because they are errno constants that exist
//       in Go-land. This type consists of an unsigned number describing an
//       error condition. It implements the error interface; we need to cast
//       it to an int to get the errno value.
type TreeError int

// The following line of code is a directive to go generate that tells it to
// create a file called treeerror_string.go that implements the .String()
// method for type TreeError.
//go:generate stringer -type=TreeError

const (
	// DuplicateKeyError reports an insert whose key is already indexed
	DuplicateKeyError TreeError = TreeError(int(unix.EEXIST))
	// KeyNotFoundError reports a delete (or lookup) of a key that is not indexed
	KeyNotFoundError TreeError = TreeError(int(unix.ENOENT))
	// AllocationError reports an allocate hook failure during any growth step
	AllocationError TreeError = TreeError(int(unix.ENOMEM))
	// InvalidArgError reports degenerate input: an absent tree handle, a
	// failing comparator, or unsorted bulk-load input
	InvalidArgError TreeError = TreeError(int(unix.EINVAL))
	// NotSupportedError reports an operation the index does not provide
	NotSupportedError TreeError = TreeError(int(unix.ENOTSUP))
)

// Success error (sounds odd, no? - perhaps this could be renamed "NotAnError"?)
const SuccessError TreeError = 0

// Default errno values for success and failure
const successErrno = 0
const failureErrno = -1

// Value returns the int value for the specified TreeError constant
func (err TreeError) Value() int {
	return int(err)
}

// NewError creates a new merry/blunder.TreeError-annotated error using the
// given format string and arguments.
func NewError(errValue TreeError, format string, a ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, a...), 1).WithValue("errno", int(errValue))
}

// AddError is used to add error detail to a Go error.
//
// NOTE: Checks whether the error value has already been set
//       Note that by default merry will replace the old with the new.
func AddError(e error, errValue TreeError) error {
	if e == nil {
		// Error hasn't been allocated yet; need to create one
		//
		// Usually we wouldn't want to mess with a nil error, but the caller of
		// this function obviously intends to make this a non-nil error.
		//
		// It's recommended that the caller create an error with some context
		// in the error string first, but we don't want to silently not work
		// if they forget to do that.
		return merry.New("regular error").WithValue("errno", int(errValue))
	}

	// Make the error "merry", adding stack trace as well as errno value.
	// This is done all in one line because the merry APIs create a new error each time.

	// For now, check and log if an errno has already been added to
	// this error, to help debugging in the cases where this was not intentional.
	prevValue := Errno(e)
	if prevValue != successErrno && prevValue != failureErrno {
		logger.Warnf("replacing error value %v with value %v for error %v.\n", prevValue, int(errValue), e)
	}

	return merry.WrapSkipping(e, 1).WithValue("errno", int(errValue))
}

func hasErrnoValue(e error) bool {
	// If the "errno" key/value was not present, merry.Value returns nil.
	tmp := merry.Value(e, "errno")
	if tmp != nil {
		return true
	}

	return false
}

// Errno extracts errno from the error, if it was previously wrapped.
// Otherwise a default value is returned.
func Errno(e error) int {
	if e == nil {
		// nil error = success
		return successErrno
	}

	// If the "errno" key/value was not present, merry.Value returns nil.
	var errno = failureErrno
	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errno = tmp.(int)
	}

	return errno
}

func ErrorString(e error) string {
	if e == nil {
		return ""
	}

	// Get the regular error string
	errPlusVal := e.Error()

	// Add the error value to it, if set
	var errno = failureErrno
	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errno = tmp.(int)
		errPlusVal = fmt.Sprintf("%s. Error Value: %v\n", errPlusVal, errno)
	}

	return errPlusVal
}

// Check if an error matches a particular TreeError
//
// NOTE: Because the value of the underlying errno is used to do this check,
//       one cannot use this API to distinguish between TreeErrors that use
//       the same errno value.
func Is(e error, theError TreeError) bool {
	return Errno(e) == theError.Value()
}

// Check if an error is NOT a particular TreeError
func IsNot(e error, theError TreeError) bool {
	return Errno(e) != theError.Value()
}

// Check if an error is the success TreeError
func IsSuccess(e error) bool {
	return Errno(e) == successErrno
}

// Check if an error is NOT the success TreeError
func IsNotSuccess(e error) bool {
	return Errno(e) != successErrno
}

// Location returns the file and line number of the code that generated the error.
// Returns zero values if e has no stacktrace.
func Location(e error) (file string, line int) {
	file, line = merry.Location(e)
	return
}

// SourceLine returns the string representation of Location's result
// Returns empty string if e has no stacktrace.
func SourceLine(e error) string {
	return merry.SourceLine(e)
}

// Details wraps merry.Details, which returns all error details including stacktrace in a string.
func Details(e error) string {
	return merry.Details(e)
}

// Stacktrace wraps merry.Stacktrace, which returns error stacktrace (if set) in a string.
func Stacktrace(e error) string {
	return merry.Stacktrace(e)
}
