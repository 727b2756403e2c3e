package eruption

import "fmt"

// HotplugInfo identifies a device that appeared or disappeared.
type HotplugInfo struct {
	DevPath      string
	USBVendorID  uint16
	USBProductID uint16
}

// Payload returns the two-byte wire form: usb_vid then usb_pid. The daemon
// schema carries one byte per identifier, so larger IDs are rejected rather
// than truncated.
func (h HotplugInfo) Payload() ([]byte, error) {
	if h.USBVendorID > 0xff || h.USBProductID > 0xff {
		return nil, fmt.Errorf("%w: vid=0x%04x pid=0x%04x", ErrHotplugIDRange, h.USBVendorID, h.USBProductID)
	}
	return []byte{byte(h.USBVendorID), byte(h.USBProductID)}, nil
}
