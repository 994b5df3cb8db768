package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/pkg"
)

type mouseEvent struct {
	buttons uint8
	dx, dy  int8
}

type keyEvent struct {
	modifier, keycode uint8
	pressed           bool
}

func recordMouse(m *Mouse) *[]mouseEvent {
	var got []mouseEvent
	m.SetObserver(MouseFunc(func(b uint8, dx, dy int8) {
		got = append(got, mouseEvent{b, dx, dy})
	}))
	return &got
}

func recordKeys(k *Keyboard) *[]keyEvent {
	var got []keyEvent
	k.SetObserver(KeyboardFunc(func(mod, code uint8, pressed bool) {
		got = append(got, keyEvent{mod, code, pressed})
	}))
	return &got
}

func report(modifier uint8, codes ...uint8) []byte {
	r := make([]byte, KeyboardReportSize)
	r[0] = modifier
	copy(r[2:], codes)
	return r
}

// =============================================================================
// Mouse Tests
// =============================================================================

func TestMouse_Decode(t *testing.T) {
	var m Mouse
	got := recordMouse(&m)

	dx := int8(-5)
	require.NoError(t, m.OnReport(1, []byte{0b001, byte(dx), 10}))
	assert.Equal(t, []mouseEvent{{buttons: 1, dx: -5, dy: 10}}, *got)
}

func TestMouse_ButtonMask(t *testing.T) {
	var m Mouse
	got := recordMouse(&m)

	require.NoError(t, m.OnReport(1, []byte{0xFF, 0, 0, 0x7F}))
	assert.Equal(t, []mouseEvent{{buttons: 0x07}}, *got)
}

func TestMouse_ShortReport(t *testing.T) {
	var m Mouse
	got := recordMouse(&m)

	err := m.OnReport(1, []byte{1, 2})
	assert.Equal(t, pkg.CauseTransferFailed, pkg.CauseOf(err))
	assert.Empty(t, *got)
}

func TestMouse_NoObserver(t *testing.T) {
	var m Mouse
	assert.NoError(t, m.OnReport(1, []byte{1, 2, 3}))
}

func TestMouse_LastObserverWins(t *testing.T) {
	var m Mouse
	first := recordMouse(&m)
	second := recordMouse(&m)

	require.NoError(t, m.OnReport(1, []byte{0, 1, 1}))
	assert.Empty(t, *first)
	assert.Len(t, *second, 1)
}

// =============================================================================
// Keyboard Tests
// =============================================================================

func TestKeyboard_PressRelease(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(1, report(0)))
	require.NoError(t, k.OnReport(1, report(0, KeyA)))
	require.NoError(t, k.OnReport(1, report(0)))

	assert.Equal(t, []keyEvent{
		{keycode: KeyA, pressed: true},
		{keycode: KeyA, pressed: false},
	}, *got)
}

func TestKeyboard_ReleasesBeforePresses(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(1, report(0, KeyA, KeyB)))
	*got = nil
	require.NoError(t, k.OnReport(1, report(ModLeftShift, KeyB, KeyC)))

	assert.Equal(t, []keyEvent{
		{modifier: ModLeftShift, keycode: KeyA, pressed: false},
		{modifier: ModLeftShift, keycode: KeyC, pressed: true},
	}, *got)
}

func TestKeyboard_HeldKeyNotRepeated(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(1, report(0, KeyA)))
	require.NoError(t, k.OnReport(1, report(0, KeyA)))
	require.NoError(t, k.OnReport(1, report(0, KeyA, KeyA)))
	assert.Len(t, *got, 1)
}

func TestKeyboard_RollOverIgnored(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(1, report(0, KeyA)))
	rollover := report(0, KeyErrorRollOver, KeyErrorRollOver, KeyErrorRollOver,
		KeyErrorRollOver, KeyErrorRollOver, KeyErrorRollOver)
	require.NoError(t, k.OnReport(1, rollover))
	require.NoError(t, k.OnReport(1, report(0, KeyA)))

	assert.Equal(t, []keyEvent{{keycode: KeyA, pressed: true}}, *got)
}

func TestKeyboard_SlotsIndependent(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(1, report(0, KeyA)))
	require.NoError(t, k.OnReport(2, report(0, KeyA)))
	assert.Len(t, *got, 2)

	require.NoError(t, k.OnReport(2, report(0)))
	assert.Equal(t, keyEvent{keycode: KeyA, pressed: false}, (*got)[2])
}

func TestKeyboard_Detach(t *testing.T) {
	var k Keyboard
	got := recordKeys(&k)

	require.NoError(t, k.OnReport(3, report(0, KeyA)))
	k.Detach(3)
	require.NoError(t, k.OnReport(3, report(0, KeyA)))

	assert.Equal(t, []keyEvent{
		{keycode: KeyA, pressed: true},
		{keycode: KeyA, pressed: true},
	}, *got)
}

func TestKeyboard_ShortReport(t *testing.T) {
	var k Keyboard
	err := k.OnReport(1, []byte{0, 0})
	assert.ErrorIs(t, err, pkg.ErrTransferFailed)
}

// =============================================================================
// Keymap Tests
// =============================================================================

func TestASCII(t *testing.T) {
	tests := []struct {
		name     string
		modifier uint8
		keycode  uint8
		want     byte
	}{
		{"a", 0, KeyA, 'a'},
		{"A left shift", ModLeftShift, KeyA, 'A'},
		{"Z right shift", ModRightShift, KeyZ, 'Z'},
		{"1", 0, Key1, '1'},
		{"!", ModLeftShift, Key1, '!'},
		{"0", 0, Key0, '0'},
		{"enter", 0, KeyEnter, '\n'},
		{"space", ModLeftShift, KeySpace, ' '},
		{"minus", 0, KeyMinus, '-'},
		{"underscore", ModLeftShift, KeyMinus, '_'},
		{"slash", 0, KeySlash, '/'},
		{"question", ModRightShift, KeySlash, '?'},
		{"keypad slash", 0, KeyPadSlash, '/'},
		{"keypad equal", 0, KeyPadEqual, '='},
		{"ctrl does not shift", ModLeftCtrl, KeyA, 'a'},
		{"function key", 0, KeyF1, 0},
		{"arrow", 0, KeyUp, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ASCII(tt.modifier, tt.keycode))
		})
	}
}
