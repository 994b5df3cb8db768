// Package usbid looks up vendor, product and class names in the usb.ids
// database distributed with most Linux systems.
//
// The host tool loads the database once and labels the devices the driver
// enumerates:
//
//	db := usbid.New()
//	if err := db.Load(); err != nil {
//	    // names fall back to hex IDs
//	}
//	fmt.Println(db.Describe(0x046D, 0xC31C))
//
// Lookups on a database that failed to load return empty strings. The
// driver itself never imports this package.
package usbid
