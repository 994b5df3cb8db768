// Package usb defines the USB 2.0/3.x framework pieces the xHCI driver needs
// to enumerate a device: connection speeds, SETUP packets, standard and HID
// class requests, and parsing of device and configuration descriptors.
//
// Parsed descriptors are stored in fixed-size values so a configuration
// tree can be decoded without allocating:
//
//	var cfg usb.Configuration
//	if err := usb.ParseConfiguration(buf[:n], &cfg); err != nil {
//	    return err // pkg.ErrInvalidDescriptor
//	}
//	iface, ep, ok := cfg.BootInterface()
package usb
