package logger

import (
	"testing"

	"github.com/laundry-marketplace/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))
}

func TestNewDevelopment(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
