package gan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseDevice(t *testing.T) {
	for input, expected := range map[string]Device{
		"":            DeviceCPU,
		"cpu":         DeviceCPU,
		"CPU":         DeviceCPU,
		"accelerator": DeviceAccelerator,
		"cuda":        DeviceAccelerator,
		"gpu":         DeviceAccelerator,
	} {
		d, err := ParseDevice(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, d, input)
	}
	_, err := ParseDevice("tpu")
	assert.Error(t, err)

	text, err := DeviceAccelerator.MarshalText()
	require.NoError(t, err)
	var d Device
	require.NoError(t, d.UnmarshalText(text))
	assert.Equal(t, DeviceAccelerator, d)
}

func TestResolveDeviceFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	assert.Equal(t, DeviceCPU, resolveDevice(DeviceCPU, logger))
	assert.Equal(t, 0, logs.Len())

	resolved := resolveDevice(DeviceAccelerator, logger)
	if acceleratorAvailable {
		assert.Equal(t, DeviceAccelerator, resolved)
		return
	}
	assert.Equal(t, DeviceCPU, resolved)
	assert.Equal(t, 1, logs.Len())
	assert.Empty(t, machineOptions(DeviceCPU))
}
