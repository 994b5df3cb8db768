//go:build profile

package prof

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCPU(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpu.out")

	require.NoError(t, StartCPU(path))
	assert.True(t, CPUActive())
	assert.ErrorIs(t, StartCPU(filepath.Join(dir, "second.out")), ErrCPUActive)

	require.NoError(t, StopCPU())
	assert.False(t, CPUActive())
	require.NoError(t, StopCPU(), "stop is idempotent")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestStartCPU_BadPath(t *testing.T) {
	err := StartCPU(filepath.Join(t.TempDir(), "missing", "cpu.out"))
	assert.Error(t, err)
	assert.False(t, CPUActive())
}

func TestWriteHeap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.out")
	require.NoError(t, WriteHeap(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Serve(ctx, "127.0.0.1:0"))
}
