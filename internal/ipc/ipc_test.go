package ipc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndServe(t *testing.T) {
	t.Parallel()

	dir, err := os.MkdirTemp("", "hark")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Listen(ctx, path, func(_ context.Context, m Message) (string, error) {
		switch m.Cmd {
		case CmdSay:
			return "queued: " + m.Text, nil
		case CmdStatus:
			return "idle", nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, m.Cmd)
	})
	require.NoError(t, err)
	defer srv.Close()

	call, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()

	resp, err := Send(call, path, Message{Cmd: CmdSay, Text: "hey agent"})
	require.NoError(t, err)
	assert.Equal(t, Response{OK: true, Text: "queued: hey agent"}, resp)

	resp, err = Send(call, path, Message{Cmd: CmdStatus})
	require.NoError(t, err)
	assert.Equal(t, "idle", resp.Text)

	resp, err = Send(call, path, Message{Cmd: "dance"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestSendWithoutDaemon(t *testing.T) {
	t.Parallel()

	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Message{Cmd: CmdStatus})
	assert.Error(t, err)
}

func TestSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/hark.sock", SocketPath())
}
