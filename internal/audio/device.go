package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes an audio capture device.
type DeviceInfo struct {
	ID        string // Stable identifier within one enumeration
	Name      string // Human-readable device name
	IsDefault bool   // Whether this is the system default capture device
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns all available capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// GetDefaultDevice returns the default capture device, falling back to the
// first enumerated device when none is marked default.
func GetDefaultDevice() (*DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}

	for _, device := range devices {
		if device.IsDefault {
			return &device, nil
		}
	}

	if len(devices) > 0 {
		return &devices[0], nil
	}
	return nil, fmt.Errorf("no capture devices found")
}

// FindDeviceByName finds a device by name (case-insensitive partial match).
func FindDeviceByName(name string) (*DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}

	searchName := strings.ToLower(name)
	for _, device := range devices {
		if strings.Contains(strings.ToLower(device.Name), searchName) {
			return &device, nil
		}
	}
	return nil, fmt.Errorf("no device found matching name: %s", name)
}
