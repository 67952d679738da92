package dialog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxstella/launcher/internal/console"
)

func TestConsole_ShowError(t *testing.T) {
	var buf bytes.Buffer
	n := New(true, console.NewOutputFormatter(&buf))

	_, isConsole := n.(*Console)
	assert.True(t, isConsole, "development mode uses the console")

	assert.NoError(t, n.ShowError("Startup Error", "Failed to start the backend service."))
	assert.Contains(t, buf.String(), "Startup Error")
	assert.Contains(t, buf.String(), "Failed to start the backend service.")
}

func TestNew_ProductionIsNative(t *testing.T) {
	n := New(false, console.NewOutputFormatter(&bytes.Buffer{}))
	native, ok := n.(*Native)
	if assert.True(t, ok) {
		assert.NotNil(t, native.Fallback)
	}
}
