package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ariefcatur/go-warranty-cards/internal/config"
)

func TestNew_Level(t *testing.T) {
	l, err := New(config.Config{LogMode: "development", LogLevel: "warn"})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_FileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "warranty.log")
	l, err := New(config.Config{LogMode: "production", LogLevel: "debug", LogFile: file})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	l.Info("written")
	assert.FileExists(t, file)
}
