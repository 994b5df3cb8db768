package usb

import "github.com/ardnew/softxhci/pkg"

// Interface is one interface of a parsed configuration, alternate setting 0.
type Interface struct {
	Descriptor   InterfaceDescriptor
	HID          HIDDescriptor
	HasHID       bool
	Endpoints    [MaxInterfaceEndpoints]EndpointDescriptor
	NumEndpoints int
}

// InterruptIn returns the first interrupt IN endpoint of the interface.
func (i *Interface) InterruptIn() (*EndpointDescriptor, bool) {
	for n := 0; n < i.NumEndpoints; n++ {
		ep := &i.Endpoints[n]
		if ep.IsInterrupt() && ep.IsIn() {
			return ep, true
		}
	}
	return nil, false
}

// Configuration is a parsed configuration descriptor tree.
type Configuration struct {
	Header        ConfigurationDescriptor
	Interfaces    [MaxInterfaces]Interface
	NumInterfaces int
}

// ParseConfiguration walks a full configuration descriptor (header plus
// every interface, class and endpoint descriptor) into out. Interfaces and
// endpoints beyond the fixed limits are skipped; alternate settings other
// than 0 are ignored.
func ParseConfiguration(data []byte, out *Configuration) error {
	*out = Configuration{}
	if err := ParseConfigurationDescriptor(data, &out.Header); err != nil {
		return err
	}
	total := int(out.Header.TotalLength)
	if total > len(data) {
		return pkg.Errorf(pkg.CauseInvalidDescriptor,
			"configuration truncated: %d of %d bytes", len(data), total)
	}

	var cur *Interface
	offset := int(out.Header.Length)
	for offset < total {
		if offset+2 > total {
			return pkg.Errorf(pkg.CauseInvalidDescriptor, "descriptor header at %d", offset)
		}
		length := int(data[offset])
		if length < 2 || offset+length > total {
			return pkg.Errorf(pkg.CauseInvalidDescriptor, "descriptor length %d at %d", length, offset)
		}
		desc := data[offset : offset+length]

		switch desc[1] {
		case DescriptorTypeInterface:
			var d InterfaceDescriptor
			if err := ParseInterfaceDescriptor(desc, &d); err != nil {
				return err
			}
			cur = nil
			if d.AlternateSetting == 0 && out.NumInterfaces < MaxInterfaces {
				cur = &out.Interfaces[out.NumInterfaces]
				cur.Descriptor = d
				out.NumInterfaces++
			}

		case DescriptorTypeHID:
			if cur != nil {
				if err := ParseHIDDescriptor(desc, &cur.HID); err != nil {
					return err
				}
				cur.HasHID = true
			}

		case DescriptorTypeEndpoint:
			var ep EndpointDescriptor
			if err := ParseEndpointDescriptor(desc, &ep); err != nil {
				return err
			}
			if cur != nil && cur.NumEndpoints < MaxInterfaceEndpoints {
				cur.Endpoints[cur.NumEndpoints] = ep
				cur.NumEndpoints++
			}
		}

		offset += length
	}
	if out.NumInterfaces == 0 {
		return pkg.NewError(pkg.CauseInvalidDescriptor, "configuration has no interfaces")
	}
	return nil
}

// BootInterface returns the first HID boot keyboard or mouse interface that
// has an interrupt IN endpoint.
func (c *Configuration) BootInterface() (*Interface, *EndpointDescriptor, bool) {
	for n := 0; n < c.NumInterfaces; n++ {
		iface := &c.Interfaces[n]
		if !iface.Descriptor.IsBootKeyboard() && !iface.Descriptor.IsBootMouse() {
			continue
		}
		if ep, ok := iface.InterruptIn(); ok {
			return iface, ep, true
		}
	}
	return nil, nil, false
}
