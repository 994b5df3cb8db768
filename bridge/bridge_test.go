package bridge

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardnew/softxhci/pkg"
)

// captureHalt replaces Halt for the duration of the test and reports how
// often it was called.
func captureHalt(t *testing.T) *int {
	t.Helper()
	calls := new(int)
	prev := Halt
	Halt = func() { *calls++ }
	t.Cleanup(func() {
		Halt = prev
		SetScheduler(nil)
	})
	return calls
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := pkg.DefaultLogger
	pkg.SetLogger(pkg.NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { pkg.SetLogger(prev) })
	return &buf
}

func TestCurrentTaskStackPointer(t *testing.T) {
	halts := captureHalt(t)
	SetScheduler(SchedulerFunc(func() uint64 { return 0xFFFF_8000_0010_0000 }))

	assert.Equal(t, uint64(0xFFFF_8000_0010_0000), CurrentTaskStackPointer())
	assert.Zero(t, *halts)
}

func TestCurrentTaskStackPointer_Zero(t *testing.T) {
	halts := captureHalt(t)
	log := captureLog(t)
	SetScheduler(SchedulerFunc(func() uint64 { return 0 }))

	assert.Zero(t, CurrentTaskStackPointer())
	assert.Equal(t, 1, *halts)
	assert.Contains(t, log.String(), "level=ERROR")
	assert.Contains(t, log.String(), "component=bridge")
}

func TestCurrentTaskStackPointer_NoScheduler(t *testing.T) {
	halts := captureHalt(t)
	log := captureLog(t)

	assert.Zero(t, CurrentTaskStackPointer())
	assert.Equal(t, 1, *halts)
	assert.Contains(t, log.String(), "no scheduler registered")
}
