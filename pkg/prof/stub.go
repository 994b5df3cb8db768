//go:build !profile

package prof

import "context"

// Enabled reports whether profiling is compiled in.
func Enabled() bool { return false }

// StartCPU returns ErrDisabled.
func StartCPU(string) error { return ErrDisabled }

// StopCPU does nothing.
func StopCPU() error { return nil }

// CPUActive always reports false.
func CPUActive() bool { return false }

// WriteHeap returns ErrDisabled.
func WriteHeap(string) error { return ErrDisabled }

// Serve returns ErrDisabled.
func Serve(context.Context, string) error { return ErrDisabled }
