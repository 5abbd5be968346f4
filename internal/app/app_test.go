package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/config"
	"hark/internal/dialog"
	"hark/internal/domain"
	"hark/internal/ipc"
	"hark/internal/metrics"
	"hark/internal/pipeline"
	"hark/internal/ports"
)

type desktop struct {
	mu   sync.Mutex
	urls []string
	apps []string
}

func (d *desktop) OpenURL(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	return nil
}

func (d *desktop) OpenPath(string) error { return nil }

func (d *desktop) Launch(candidates []string, _ ...string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.Contains(candidates, "firefox") {
		d.apps = append(d.apps, "firefox")
		return "firefox", nil
	}
	return "", errors.New("not installed")
}

func (d *desktop) KillByName(string) error { return nil }
func (d *desktop) SendKeys(string) error   { return nil }
func (d *desktop) TypeText(string) error   { return nil }

type procs struct{}

func (procs) Processes(context.Context) ([]ports.ProcessInfo, error) { return nil, nil }

func (procs) Load(context.Context) (ports.SystemLoad, error) { return ports.SystemLoad{}, nil }

func (procs) Kill(context.Context, int32) error { return nil }

type awake struct{ held bool }

func (a *awake) Hold() error {
	a.held = true
	return nil
}

func (a *awake) Release() error {
	a.held = false
	return nil
}

func (a *awake) Held() bool { return a.held }

type speaker struct{}

func (speaker) Speak(string) error { return nil }

type harness struct {
	app     *App
	desk    *desktop
	awake   *awake
	metrics *metrics.Metrics

	mu      sync.Mutex
	replies []string
}

func newHarness(t *testing.T) (*harness, context.Context) {
	t.Helper()

	h := &harness{desk: &desktop{}, awake: &awake{}, metrics: metrics.New()}
	cfg := config.Default()
	cfg.Booking.DefaultCity = "pune"

	a, err := Build(cfg, Deps{
		Speaker: speaker{},
		Desktop: h.desk,
		Procs:   procs{},
		Awake:   h.awake,
		Metrics: h.metrics,
		Replies: []pipeline.ReplyFunc{func(_ pipeline.Input, r domain.Reply) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.replies = append(h.replies, r.Text)
		}},
		Now: func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	h.app = a

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = a.Pipeline.Run(ctx) }()
	t.Cleanup(a.Close)
	return h, ctx
}

// say submits text and waits until the consumer has handled it.
func (h *harness) say(t *testing.T, ctx context.Context, text string) string {
	t.Helper()

	h.mu.Lock()
	n := len(h.replies)
	h.mu.Unlock()

	require.NoError(t, h.app.Pipeline.Submit(ctx, pipeline.Input{Text: text, Source: pipeline.SourceStdin}))
	require.NoError(t, h.app.Pipeline.Do(ctx, func() {}))

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.replies) == n {
		return ""
	}
	return h.replies[len(h.replies)-1]
}

func TestBuildRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := Build(config.Default(), Deps{})
	assert.ErrorIs(t, err, ErrMissingDeps)
}

func TestSessionAndRouting(t *testing.T) {
	t.Parallel()

	h, ctx := newHarness(t)

	assert.Empty(t, h.say(t, ctx, "open firefox"))
	assert.Equal(t, pipeline.WakeReply, h.say(t, ctx, "hey agent"))
	assert.True(t, h.awake.held)

	assert.Contains(t, h.say(t, ctx, "open firefox"), "Opened")
	assert.Equal(t, []string{"firefox"}, h.desk.apps)

	assert.Equal(t, "Opened browser with search results.", h.say(t, ctx, "search for golang tutorials"))
	require.Len(t, h.desk.urls, 1)
	assert.Contains(t, h.desk.urls[0], "golang")

	assert.Equal(t, pipeline.SleepReply, h.say(t, ctx, "bye agent"))
	assert.False(t, h.awake.held)
	assert.Empty(t, h.say(t, ctx, "open firefox"))
}

func TestCancelPhrasesAreNoopWithoutDialog(t *testing.T) {
	t.Parallel()

	h, ctx := newHarness(t)
	h.say(t, ctx, "hey agent")

	for _, phrase := range dialog.DefaultCancelPhrases {
		for range 2 {
			assert.Empty(t, h.say(t, ctx, phrase), phrase)
		}
	}
	assert.Empty(t, h.desk.urls)
	assert.Empty(t, h.desk.apps)

	_, active := h.app.Router.Active()
	assert.False(t, active)
}

func TestDialogShowsInStatus(t *testing.T) {
	t.Parallel()

	h, ctx := newHarness(t)
	h.say(t, ctx, "hey agent")

	assert.NotEmpty(t, h.say(t, ctx, "create a file"))
	status, err := h.app.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session active, in file dialog", status)

	assert.NotEmpty(t, h.say(t, ctx, "cancel"))
	status, err = h.app.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session active", status)
}

func TestControl(t *testing.T) {
	t.Parallel()

	h, ctx := newHarness(t)

	out, err := h.app.Control(ctx, ipc.Message{Cmd: ipc.CmdSay, Text: "search for cats", Direct: true})
	require.NoError(t, err)
	assert.Equal(t, "queued", out)
	require.NoError(t, h.app.Pipeline.Do(ctx, func() {}))
	assert.Len(t, h.desk.urls, 1)

	out, err = h.app.Control(ctx, ipc.Message{Cmd: ipc.CmdStatus})
	require.NoError(t, err)
	assert.Equal(t, "session idle", out)

	_, err = h.app.Control(ctx, ipc.Message{Cmd: ipc.CmdSay})
	assert.Error(t, err)
	_, err = h.app.Control(ctx, ipc.Message{Cmd: "reboot"})
	assert.ErrorIs(t, err, ipc.ErrUnknownCommand)
}
