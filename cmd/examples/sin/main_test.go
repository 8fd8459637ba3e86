package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	verbose := newLogger(true)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))

	quiet := newLogger(false)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.InfoLevel))
}
