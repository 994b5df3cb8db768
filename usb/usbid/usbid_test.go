package usbid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# usb.ids excerpt
046d  Logitech, Inc.
	c31c  Keyboard K120
	c077  M105 Optical Mouse
1234  Test Vendor
	5678  Test Product
C 03  Human Interface Device
	00  No Subclass
	01  Boot Interface Subclass
		01  Keyboard
		02  Mouse
C 09  Hub
AT 0401  United States
HID 00  Undefined
`

func parsed(t *testing.T) *Database {
	t.Helper()
	db := New()
	require.NoError(t, db.Parse(strings.NewReader(sample)))
	return db
}

func TestParse_VendorsAndProducts(t *testing.T) {
	db := parsed(t)

	assert.True(t, db.Loaded())
	assert.Equal(t, "Logitech, Inc.", db.Vendor(0x046D))
	assert.Equal(t, "Keyboard K120", db.Product(0x046D, 0xC31C))
	assert.Equal(t, "M105 Optical Mouse", db.Product(0x046D, 0xC077))
	assert.Equal(t, "Test Product", db.Product(0x1234, 0x5678))
	assert.Empty(t, db.Product(0x1234, 0xC31C))
	assert.Empty(t, db.Vendor(0xFFFF))
}

func TestParse_Classes(t *testing.T) {
	db := parsed(t)

	tests := []struct {
		name                      string
		class, subclass, protocol uint8
		want                      string
	}{
		{"boot keyboard", 0x03, 0x01, 0x01, "Keyboard"},
		{"boot mouse", 0x03, 0x01, 0x02, "Mouse"},
		{"unknown protocol", 0x03, 0x01, 0x07, "Boot Interface Subclass"},
		{"unknown subclass", 0x03, 0x05, 0x00, "Human Interface Device"},
		{"hub", 0x09, 0x00, 0x00, "Hub"},
		{"unknown", 0x42, 0x00, 0x00, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.Class(tt.class, tt.subclass, tt.protocol))
		})
	}
}

func TestParse_OtherSectionsIgnored(t *testing.T) {
	db := parsed(t)
	// "AT 0401" must not be mistaken for a vendor.
	assert.Empty(t, db.Vendor(0x0401))
}

func TestDescribe(t *testing.T) {
	db := parsed(t)
	assert.Equal(t, "046d:c31c Logitech, Inc. Keyboard K120", db.Describe(0x046D, 0xC31C))
	assert.Equal(t, "dead:beef", db.Describe(0xDEAD, 0xBEEF))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usb.ids")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	db := New("/nonexistent/usb.ids", path)
	require.NoError(t, db.Load())
	require.NoError(t, db.Load())
	assert.Equal(t, "Test Vendor", db.Vendor(0x1234))
}

func TestLoad_NotFound(t *testing.T) {
	db := New("/nonexistent/usb.ids")
	assert.ErrorIs(t, db.Load(), ErrNotFound)
	assert.False(t, db.Loaded())
	assert.Empty(t, db.Vendor(0x046D))
}
