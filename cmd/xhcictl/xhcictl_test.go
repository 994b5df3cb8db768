package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/pcidb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/hid"
)

// =============================================================================
// Scan
// =============================================================================

func pciDevice(addr, class, subclass, progIf string) *ghw.PCIDevice {
	return &ghw.PCIDevice{
		Address:              addr,
		Vendor:               &pcidb.Vendor{ID: "8086", Name: "Intel Corporation"},
		Product:              &pcidb.Product{ID: "a36d", Name: "Cannon Lake PCH USB 3.1 xHCI Host Controller"},
		Class:                &pcidb.Class{ID: class},
		Subclass:             &pcidb.Subclass{ID: subclass},
		ProgrammingInterface: &pcidb.ProgrammingInterface{ID: progIf},
	}
}

func writeResource(t *testing.T, root, addr, content string) {
	t.Helper()
	dir := filepath.Join(root, "sys", "bus", "pci", "devices", addr)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resource"), []byte(content), 0o644))
}

func TestIsXHCI(t *testing.T) {
	assert.True(t, isXHCI(pciDevice("0000:00:14.0", "0c", "03", "30")))
	assert.False(t, isXHCI(pciDevice("0000:00:1a.0", "0c", "03", "20")), "EHCI")
	assert.False(t, isXHCI(pciDevice("0000:00:1f.3", "04", "03", "00")), "audio")
	assert.False(t, isXHCI(&ghw.PCIDevice{Address: "0000:00:00.0"}), "no class info")
	assert.False(t, isXHCI(nil))
}

func TestReadBAR0(t *testing.T) {
	root := t.TempDir()
	writeResource(t, root, "0000:00:14.0",
		"0x00000000a1200000 0x00000000a120ffff 0x0000000000140204\n"+
			"0x0000000000000000 0x0000000000000000 0x0000000000000000\n")

	bar, err := readBAR0(root, "0000:00:14.0")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xA120_0000), bar)

	_, err = readBAR0(root, "0000:00:15.0")
	assert.Error(t, err, "missing device")

	writeResource(t, root, "0000:00:16.0", "")
	_, err = readBAR0(root, "0000:00:16.0")
	assert.Error(t, err, "empty file")

	writeResource(t, root, "0000:00:17.0", "garbage\n")
	_, err = readBAR0(root, "0000:00:17.0")
	assert.Error(t, err, "malformed start")
}

func TestFindControllers(t *testing.T) {
	root := t.TempDir()
	writeResource(t, root, "0000:00:14.0", "0x00000000a1200000 0x00000000a120ffff 0x0000000000140204\n")

	devs := []*ghw.PCIDevice{
		pciDevice("0000:00:02.0", "03", "00", "00"),
		pciDevice("0000:00:14.0", "0c", "03", "30"),
		pciDevice("0000:03:00.0", "0c", "03", "30"), // no resource file
	}
	got := findControllers(devs, root)
	require.Len(t, got, 2)
	assert.Equal(t, "0000:00:14.0", got[0].Address)
	assert.Equal(t, "Intel Corporation", got[0].Vendor)
	assert.Equal(t, uint64(0xA120_0000), got[0].BAR0)
	assert.Zero(t, got[1].BAR0)
}

func TestProgIfName(t *testing.T) {
	db := &pcidb.PCIDB{Classes: map[string]*pcidb.Class{
		"0c": {ID: "0c", Name: "Serial bus controller", Subclasses: []*pcidb.Subclass{
			{ID: "03", Name: "USB controller", ProgrammingInterfaces: []*pcidb.ProgrammingInterface{
				{ID: "20", Name: "EHCI"},
				{ID: "30", Name: "XHCI"},
			}},
		}},
	}}
	assert.Equal(t, "XHCI", progIfName(db, "0c", "03", "30"))
	assert.Empty(t, progIfName(db, "0c", "03", "40"))
	assert.Empty(t, progIfName(db, "0c", "05", "00"))
	assert.Empty(t, progIfName(db, "02", "00", "00"))
}

// =============================================================================
// Script
// =============================================================================

func TestKeystrokes_InvertASCII(t *testing.T) {
	for _, ch := range []byte("azAZ09!@ \n,.?/") {
		ks, ok := keystrokes[ch]
		require.True(t, ok, "%q", ch)
		assert.Equal(t, ch, hid.ASCII(ks.modifier, ks.keycode), "%q", ch)
	}
	assert.Equal(t, keystroke{0, hid.KeyA}, keystrokes['a'])
	assert.Equal(t, keystroke{hid.ModLeftShift, hid.KeyA}, keystrokes['A'])
	assert.Equal(t, keystroke{0, hid.KeyEnter}, keystrokes['\n'], "main enter over keypad")
	assert.Equal(t, keystroke{0, hid.KeySlash}, keystrokes['/'], "main slash over keypad")
}

func TestTypeReports(t *testing.T) {
	got := typeReports("aB\x01")
	require.Len(t, got, 4, "unmapped characters are skipped")
	assert.Equal(t, []byte{0, 0, hid.KeyA, 0, 0, 0, 0, 0}, got[0])
	assert.Equal(t, make([]byte, hid.KeyboardReportSize), got[1])
	assert.Equal(t, []byte{hid.ModLeftShift, 0, hid.KeyB, 0, 0, 0, 0, 0}, got[2])
}

func TestSquareReports(t *testing.T) {
	got := squareReports(200)
	require.Len(t, got, 8)
	var x, y int
	for _, r := range got {
		x += int(int8(r[1]))
		y += int(int8(r[2]))
	}
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Equal(t, []byte{0, 127, 0}, got[0])
}

func TestFeed(t *testing.T) {
	steps := []step{{kind: stepConnect, port: 1}, {kind: stepReport, port: 1}}
	out := make(chan step, len(steps))
	require.NoError(t, feed(context.Background(), steps, 0, out))

	var got []step
	for s := range out {
		got = append(got, s)
	}
	assert.Equal(t, steps, got)
}

func TestFeed_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan step)
	err := feed(ctx, []step{{kind: stepConnect}}, time.Hour, out)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := <-out
	assert.False(t, ok, "channel closed")
}

// =============================================================================
// Simulate
// =============================================================================

func TestSimulate(t *testing.T) {
	ids := filepath.Join(t.TempDir(), "usb.ids")
	require.NoError(t, os.WriteFile(ids, []byte(
		"046d  Logitech, Inc.\n"+
			"\tc077  M105 Optical Mouse\n"+
			"413c  Dell Computer Corp.\n"+
			"\t2107  KB212-B Quiet Key Keyboard\n"+
			"C 03  Human Interface Device\n"+
			"\t01  Boot Interface Subclass\n"+
			"\t\t01  Keyboard\n"+
			"\t\t02  Mouse\n"), 0o644))

	cfg := simConfig{
		ports:        4,
		keyboardPort: 1,
		mousePort:    3,
		mouseSpeed:   "full",
		text:         "Hello, xHCI!\n",
		side:         200,
		usbIDs:       ids,
	}
	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), cfg, &out))

	s := out.String()
	assert.Contains(t, s, "port 1: slot 1 ")
	assert.Contains(t, s, "413c:2107 Dell Computer Corp. KB212-B Quiet Key Keyboard (Keyboard)")
	assert.Contains(t, s, "046d:c077 Logitech, Inc. M105 Optical Mouse (Mouse)")
	assert.Contains(t, s, `typed: "Hello, xHCI!\n"`)
	assert.Contains(t, s, "pointer: (0, 0), 0 clicks")
	assert.Contains(t, s, "enabled slots: 0, dropped events: 0")
}

func TestSimulate_BadSpeed(t *testing.T) {
	err := simulate(context.Background(), simConfig{ports: 4, mouseSpeed: "warp"}, &bytes.Buffer{})
	assert.Error(t, err)
}
