package tts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Speak("  Opened Firefox. "))
	require.NoError(t, c.Speak(""))
	assert.Equal(t, "hark: Opened Firefox.\n", buf.String())
}
