package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l, err := New("debug", "test")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("nonsense", "test")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@b.com", MaskEmail("alice@b.com"))
	assert.Equal(t, "***", MaskEmail("@b.com"))
	assert.Equal(t, "***", MaskEmail("no-at-sign"))
}
