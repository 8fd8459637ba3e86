package gan

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorgonia.org/gorgonia"
)

// Device Where graph programs are executed
type Device uint8

const (
	DeviceCPU = Device(iota)
	DeviceAccelerator
)

func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceAccelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("Device(%d)", uint8(d))
	}
}

// ParseDevice Parses "cpu" or "accelerator" ("cuda" and "gpu" are accepted as aliases)
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return DeviceCPU, nil
	case "accelerator", "cuda", "gpu":
		return DeviceAccelerator, nil
	default:
		return DeviceCPU, fmt.Errorf("Device '%s' is not supported", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Device) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by flags parsing)
func (d *Device) UnmarshalText(text []byte) error {
	parsed, err := ParseDevice(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Device) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// resolveDevice Falls back to CPU when binary has been built without accelerator support
func resolveDevice(d Device, logger *zap.Logger) Device {
	if d == DeviceAccelerator && !acceleratorAvailable {
		logger.Warn("accelerator requested, but binary is built without 'cuda' tag: falling back to cpu")
		return DeviceCPU
	}
	return d
}

// machineOptions Returns tape machine options for device
func machineOptions(d Device, extra ...gorgonia.VMOpt) []gorgonia.VMOpt {
	opts := make([]gorgonia.VMOpt, 0, len(extra)+1)
	opts = append(opts, extra...)
	if d == DeviceAccelerator {
		opts = append(opts, acceleratorOptions()...)
	}
	return opts
}
