// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package blunder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestValues(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int(unix.EEXIST), DuplicateKeyError.Value(), "DuplicateKeyError should map to EEXIST")
	assert.Equal(int(unix.ENOENT), KeyNotFoundError.Value(), "KeyNotFoundError should map to ENOENT")
	assert.Equal(int(unix.ENOMEM), AllocationError.Value(), "AllocationError should map to ENOMEM")
	assert.Equal(int(unix.EINVAL), InvalidArgError.Value(), "InvalidArgError should map to EINVAL")
	assert.Equal(0, SuccessError.Value(), "SuccessError should map to 0")
}

func TestDefaultErrno(t *testing.T) {
	assert := assert.New(t)

	// Nil error test
	var err error

	// Now try to get error val out of err. We should get a default value, since error value hasn't been set.
	errno := Errno(err)

	// Since err is nil, the default value should be successErrno
	assert.Equal(successErrno, errno, "nil error should carry successErrno")

	// IsSuccess should return true and IsNotSuccess should return false
	assert.True(IsSuccess(err), "IsSuccess() should return true for a nil error")
	assert.False(IsNotSuccess(err), "IsNotSuccess() should return false for a nil error")

	// Non-nil error test
	err = fmt.Errorf("This is an ordinary error")

	// Since err is non-nil, the default value should be failureErrno (-1)
	errno = Errno(err)
	assert.Equal(failureErrno, errno, "plain error should carry failureErrno")

	assert.False(IsSuccess(err), "IsSuccess() should return false for a plain error")
	assert.True(IsNotSuccess(err), "IsNotSuccess() should return true for a plain error")

	// Specific error test
	err = AddError(err, InvalidArgError)
	assert.Equal(InvalidArgError.Value(), Errno(err), "AddError() should set the errno value")
}

func TestAddValue(t *testing.T) {
	assert := assert.New(t)

	// Add value to a nil error (not recommended as a strategy, but it needs to work anyway)
	var err error
	err = AddError(err, DuplicateKeyError)
	assert.Equal(DuplicateKeyError.Value(), Errno(err), "AddError() on a nil error should still set the errno value")
	assert.True(hasErrnoValue(err), "hasErrnoValue() should see the added value")

	// Validate the Is* APIs on what started as a nil error
	assert.True(Is(err, DuplicateKeyError), "Is() should match the added value")
	assert.False(Is(err, KeyNotFoundError), "Is() should not match a different value")
	assert.True(IsNot(err, AllocationError), "IsNot() should not match a different value")
	assert.False(IsSuccess(err), "IsSuccess() should return false once a value was added")

	// Add value to a non-nil error
	err = fmt.Errorf("This is an ordinary error")
	err = AddError(err, KeyNotFoundError)
	assert.Equal(KeyNotFoundError.Value(), Errno(err), "AddError() should set the errno value")
	assert.True(Is(err, KeyNotFoundError), "Is() should match the added value")
	assert.True(IsNot(err, DuplicateKeyError), "IsNot() should not match a different value")
}

func TestNewError(t *testing.T) {
	assert := assert.New(t)

	err := NewError(AllocationError, "allocate hook failed for %d slots", 16)
	assert.Equal(AllocationError.Value(), Errno(err), "NewError() should set the errno value")
	assert.Contains(err.Error(), "allocate hook failed for 16 slots", "NewError() should format the message")
	assert.Contains(ErrorString(err), "Error Value:", "ErrorString() should append the errno value")

	file, line := Location(err)
	assert.NotEqual("", file, "Location() should report the originating file")
	assert.NotEqual(0, line, "Location() should report the originating line")
	assert.NotEqual("", Stacktrace(err), "Stacktrace() should be non-empty for a NewError() result")
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("DuplicateKeyError", DuplicateKeyError.String())
	assert.Equal("SuccessError", SuccessError.String())
}
