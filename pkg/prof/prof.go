//go:build profile

package prof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/ on http.DefaultServeMux
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/ardnew/softxhci/pkg"
)

var (
	cpuMu   sync.Mutex
	cpuFile *os.File
)

// Enabled reports whether profiling is compiled in.
func Enabled() bool { return true }

// StartCPU starts a CPU profile written to path.
func StartCPU(path string) error {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	if cpuFile != nil {
		return ErrCPUActive
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("cpu profile: %w", err)
	}
	cpuFile = f
	pkg.LogInfo(pkg.ComponentTool, "cpu profile started", "path", path)
	return nil
}

// StopCPU stops the running CPU profile, if any, and closes its file.
func StopCPU() error {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	if cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := cpuFile.Close()
	cpuFile = nil
	return err
}

// CPUActive reports whether a CPU profile is running.
func CPUActive() bool {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	return cpuFile != nil
}

// WriteHeap writes a heap profile to path after a collection.
func WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("heap profile: %w", err)
	}
	return f.Close()
}

// Serve runs the pprof HTTP endpoints on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: http.DefaultServeMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	pkg.LogInfo(pkg.ComponentTool, "pprof listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
