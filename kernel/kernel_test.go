package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/hid"
	"github.com/ardnew/softxhci/internal/xhcisim"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/xhci"
)

func construct(sim *xhcisim.Controller) Handle {
	return ConstructWith(sim.Base(),
		xhci.WithBus(sim),
		xhci.WithArena(sim.Arena()),
		xhci.WithPollLimit(1000))
}

func TestLifecycle(t *testing.T) {
	sim := xhcisim.New()
	require.NoError(t, sim.Connect(1, xhcisim.NewKeyboard(usb.SpeedHigh)))
	require.NoError(t, sim.Connect(2, xhcisim.NewMouse(usb.SpeedFull)))

	type key struct {
		code    uint8
		pressed bool
	}
	var keys []key
	var moves [][3]int8
	RegisterKeyboardObserver(func(_, code uint8, pressed bool) { keys = append(keys, key{code, pressed}) })
	RegisterMouseObserver(func(b uint8, dx, dy int8) { moves = append(moves, [3]int8{int8(b), dx, dy}) })
	t.Cleanup(func() {
		RegisterKeyboardObserver(nil)
		RegisterMouseObserver(nil)
	})

	h := construct(sim)
	require.True(t, h.Valid())
	require.Equal(t, pkg.CauseSuccess, Initialize(h))
	require.Equal(t, pkg.CauseSuccess, Run(h))
	ConfigurePorts(h)
	for HasPendingEvent(h) {
		assert.Equal(t, pkg.CauseSuccess, ProcessEvent(h))
	}

	require.NoError(t, sim.SendReport(1, []byte{0, 0, hid.KeyEnter, 0, 0, 0, 0, 0}))
	require.NoError(t, sim.SendReport(2, []byte{1, 3, 0xFD}))
	require.True(t, HasPendingEvent(h))
	for HasPendingEvent(h) {
		require.Equal(t, pkg.CauseSuccess, ProcessEvent(h))
	}

	assert.Equal(t, []key{{hid.KeyEnter, true}}, keys)
	assert.Equal(t, [][3]int8{{1, 3, -3}}, moves)
	assert.Equal(t, pkg.CauseSuccess, ProcessEvent(h), "no pending event")
}

func TestInvalidHandle(t *testing.T) {
	var zero Handle
	assert.False(t, zero.Valid())
	assert.Equal(t, pkg.CauseNoSuchDevice, Initialize(zero))
	assert.Equal(t, pkg.CauseNoSuchDevice, Run(zero))
	assert.Equal(t, pkg.CauseNoSuchDevice, ProcessEvent(zero))
	assert.False(t, HasPendingEvent(zero))
	ConfigurePorts(zero)
}

func TestReconstructInvalidatesHandle(t *testing.T) {
	old := construct(xhcisim.New())
	h := construct(xhcisim.New())

	assert.False(t, old.Valid())
	assert.Equal(t, pkg.CauseNoSuchDevice, Initialize(old))
	assert.Equal(t, pkg.CauseSuccess, Initialize(h))
}

func TestRunBeforeInitialize(t *testing.T) {
	h := construct(xhcisim.New())
	assert.Equal(t, pkg.CauseInvalidState, Run(h))
}

func TestInitializeTimeout(t *testing.T) {
	h := construct(xhcisim.New(xhcisim.WithBIOSOwned(true)))
	assert.Equal(t, pkg.CauseTimeout, Initialize(h))
}

func TestGetCurrentTaskStackPointer(t *testing.T) {
	RegisterScheduler(func() uint64 { return 0x7000 })
	t.Cleanup(func() { RegisterScheduler(nil) })
	assert.Equal(t, uint64(0x7000), GetCurrentTaskStackPointer())
}
