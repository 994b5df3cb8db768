// Package pkg provides shared utilities for the softxhci driver.
//
// This package contains functionality used by every layer of the driver:
//
//   - Structured logging via Go's standard [log/slog] package
//   - The failure [Cause] taxonomy returned across the kernel boundary
//   - [Error], which records the cause and the source location that raised it
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with driver-specific context. On
// bare metal the kernel installs a logger whose handler writes to its
// console:
//
//	pkg.SetLogger(slog.New(console.Handler()))
//	pkg.LogInfo(pkg.ComponentPort, "port configured", "port", 3, "slot", 1)
//
// # Errors
//
// Every fallible driver operation returns an [*Error]:
//
//	if errors.Is(err, pkg.ErrTimeout) {
//	    // a bounded poll expired
//	}
//	code := pkg.CauseOf(err) // value returned to the kernel
package pkg
