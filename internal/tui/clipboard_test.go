package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectClipboardCommand_Configured(t *testing.T) {
	assert.Equal(t, "wl-copy --primary", detectClipboardCommand("wl-copy --primary"))
}

func TestCopyText(t *testing.T) {
	// cat reads the text from stdin and exits cleanly
	assert.NoError(t, copyText("raw matter", "cat"))

	assert.Error(t, copyText("raw matter", "atmos-no-such-clipboard-tool"))
}
