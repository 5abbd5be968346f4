package system

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchPicksFirstInstalled(t *testing.T) {
	t.Parallel()

	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	d := &Desktop{timeout: time.Second, lookPath: func(name string) (string, error) {
		if name == "second" {
			return truePath, nil
		}
		return "", exec.ErrNotFound
	}}

	name, err := d.Launch([]string{"first", "second", "third"}, "--flag")
	require.NoError(t, err)
	assert.Equal(t, "second", name)

	_, err = d.Launch([]string{"first"})
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestKeysWithoutXdotool(t *testing.T) {
	t.Parallel()

	d := &Desktop{timeout: time.Second, lookPath: func(string) (string, error) { return "", exec.ErrNotFound }}
	assert.ErrorIs(t, d.SendKeys("ctrl+l"), ErrNotInstalled)
	assert.ErrorIs(t, d.TypeText("hello"), ErrNotInstalled)
	assert.ErrorIs(t, d.KillByName("vlc"), ErrNotInstalled)
}

func TestInhibitorIdle(t *testing.T) {
	t.Parallel()

	i := NewInhibitor()
	assert.False(t, i.Held())
	assert.NoError(t, i.Release())

	if _, err := exec.LookPath("systemd-inhibit"); err != nil {
		assert.True(t, errors.Is(i.Hold(), ErrNoInhibitor))
		assert.False(t, i.Held())
	}
}

func TestProcsListsSelf(t *testing.T) {
	t.Parallel()

	ps, err := NewProcs().Processes(context.Background())
	require.NoError(t, err)
	self := int32(os.Getpid())
	found := false
	for _, p := range ps {
		if p.PID == self {
			found = true
			break
		}
	}
	assert.True(t, found)
}
