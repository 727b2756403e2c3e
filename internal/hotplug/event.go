package hotplug

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eruption-project/eruption-sdk/eruption"
)

var errNoIdentifiers = errors.New("event carries no usb vendor/product identifiers")

// InfoFromEnv extracts device identity from a uevent environment. PRODUCT
// ("vid/pid/bcdDevice", hex without padding) is preferred; the udev
// ID_VENDOR_ID and ID_MODEL_ID properties are the fallback.
func InfoFromEnv(env map[string]string) (eruption.HotplugInfo, error) {
	info := eruption.HotplugInfo{DevPath: env["DEVPATH"]}
	if info.DevPath != "" && !strings.HasPrefix(info.DevPath, "/sys") {
		info.DevPath = "/sys" + info.DevPath
	}

	if product := strings.TrimSpace(env["PRODUCT"]); product != "" {
		parts := strings.Split(product, "/")
		if len(parts) < 2 {
			return eruption.HotplugInfo{}, fmt.Errorf("malformed PRODUCT %q", product)
		}
		vid, err := ParseID(parts[0])
		if err != nil {
			return eruption.HotplugInfo{}, fmt.Errorf("PRODUCT vendor: %w", err)
		}
		pid, err := ParseID(parts[1])
		if err != nil {
			return eruption.HotplugInfo{}, fmt.Errorf("PRODUCT product: %w", err)
		}
		info.USBVendorID, info.USBProductID = vid, pid
		return info, nil
	}

	vendor, model := env["ID_VENDOR_ID"], env["ID_MODEL_ID"]
	if vendor == "" || model == "" {
		return eruption.HotplugInfo{}, errNoIdentifiers
	}
	vid, err := ParseID(vendor)
	if err != nil {
		return eruption.HotplugInfo{}, fmt.Errorf("ID_VENDOR_ID: %w", err)
	}
	pid, err := ParseID(model)
	if err != nil {
		return eruption.HotplugInfo{}, fmt.Errorf("ID_MODEL_ID: %w", err)
	}
	info.USBVendorID, info.USBProductID = vid, pid
	return info, nil
}

// ParseID reads a hexadecimal USB identifier, with or without a 0x prefix.
func ParseID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q", s)
	}
	return uint16(v), nil
}
