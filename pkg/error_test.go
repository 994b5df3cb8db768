package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCause_String(t *testing.T) {
	tests := []struct {
		cause Cause
		want  string
	}{
		{CauseSuccess, "success"},
		{CauseTimeout, "timeout"},
		{CauseNoSuchDevice, "no such device"},
		{CauseTransferFailed, "transfer failed"},
		{CauseCommandFailed, "command failed"},
		{CauseInvalidDescriptor, "invalid descriptor"},
		{CauseNoResources, "no resources"},
		{CauseInvalidState, "invalid state"},
		{Cause(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cause.String())
		})
	}
}

func TestCause_Err(t *testing.T) {
	assert.NoError(t, CauseSuccess.Err())
	assert.ErrorIs(t, CauseTimeout.Err(), ErrTimeout)
	assert.ErrorIs(t, CauseCommandFailed.Err(), ErrCommandFailed)
	assert.ErrorIs(t, Cause(99).Err(), ErrInvalidState)
}

func TestSentinelErrors(t *testing.T) {
	errs := []error{
		ErrTimeout,
		ErrNoSuchDevice,
		ErrTransferFailed,
		ErrCommandFailed,
		ErrInvalidDescriptor,
		ErrNoResources,
		ErrInvalidState,
	}

	for i, err1 := range errs {
		require.NotNil(t, err1, "error %d", i)
		for j, err2 := range errs {
			if i != j {
				assert.False(t, errors.Is(err1, err2), "error %d and %d are equal", i, j)
			}
		}
	}
}

func TestNewError_RecordsCaller(t *testing.T) {
	err := NewError(CauseTimeout, "USBSTS.HCH")

	assert.Equal(t, CauseTimeout, err.Cause)
	assert.Equal(t, "error_test.go", err.File)
	assert.NotZero(t, err.Line)
	assert.Contains(t, err.Error(), "timeout: USBSTS.HCH")
	assert.Contains(t, err.Error(), "[error_test.go:")
}

func TestError_Is(t *testing.T) {
	err := CodeError(CauseTransferFailed, 6, "interrupt in")

	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.NotErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "(code 6)")
}

func TestWrapError_Unwrap(t *testing.T) {
	inner := errors.New("short read")
	err := WrapError(CauseInvalidDescriptor, "device descriptor", inner)

	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestCauseOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Cause
	}{
		{"nil", nil, CauseSuccess},
		{"driver error", Errorf(CauseNoSuchDevice, "port %d", 9), CauseNoSuchDevice},
		{"wrapped driver error", fmt.Errorf("scan: %w", NewError(CauseTimeout, "PORTSC.PR")), CauseTimeout},
		{"sentinel", ErrNoResources, CauseNoResources},
		{"foreign", errors.New("other"), CauseInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CauseOf(tt.err))
		})
	}
}
