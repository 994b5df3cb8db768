//go:build !profile

package prof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabled(t *testing.T) {
	assert.False(t, Enabled())
	assert.ErrorIs(t, StartCPU("cpu.out"), ErrDisabled)
	assert.NoError(t, StopCPU())
	assert.False(t, CPUActive())
	assert.ErrorIs(t, WriteHeap("heap.out"), ErrDisabled)
	assert.ErrorIs(t, Serve(context.Background(), "localhost:0"), ErrDisabled)
}
