package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { SetGlobal(nil, false) })

	var buf bytes.Buffer
	Setup(&buf, false)
	Get().Debug("hidden")
	Get().Info("shown", "table", "users")

	assert.False(t, IsDebug())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "table=users")

	buf.Reset()
	Setup(&buf, true)
	Get().Debug("visible")

	assert.True(t, IsDebug())
	assert.Contains(t, buf.String(), "visible")
}

func TestGetFallback(t *testing.T) {
	SetGlobal(nil, false)
	assert.NotNil(t, Get())
}
