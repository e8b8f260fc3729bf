package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Named("program").Debug("compiled", zap.String("signature", "color/static"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "program", entries[0].LoggerName)
		assert.Equal(t, "compiled", entries[0].Message)
	}
}

func TestSetLoggerNilRestoresNop(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, Logger())
	assert.NotPanics(t, func() { Logger().Info("dropped") })
}
