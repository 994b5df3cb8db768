// Package prof collects runtime profiles from host builds of the driver
// tools. It is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./cmd/xhcictl
//	xhcictl simulate --cpu-profile cpu.out --heap-profile heap.out
//
// Without the tag every entry point returns [ErrDisabled] and the bare-metal
// image carries no profiling code.
//
// [Serve] exposes net/http/pprof on an address until its context ends:
//
//	eg.Go(func() error { return prof.Serve(ctx, "localhost:6060") })
package prof

import "errors"

var (
	// ErrDisabled is returned when the binary was built without the
	// "profile" tag.
	ErrDisabled = errors.New("profiling not compiled in (build with -tags profile)")

	// ErrCPUActive is returned by StartCPU while a CPU profile is running.
	ErrCPUActive = errors.New("cpu profile already active")
)
