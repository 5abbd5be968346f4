package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/domain"
)

type fakeAwake struct {
	held     bool
	holds    int
	releases int
	err      error
}

func (f *fakeAwake) Hold() error {
	f.holds++
	f.held = true
	return f.err
}

func (f *fakeAwake) Release() error {
	f.releases++
	f.held = false
	return f.err
}

func (f *fakeAwake) Held() bool { return f.held }

func TestGateWakeAndSleep(t *testing.T) {
	t.Parallel()

	awake := &fakeAwake{}
	g := NewGate(DefaultConfig(), awake)
	require.Equal(t, domain.ModeIdle, g.State().Mode)

	assert.Equal(t, Ignored, g.Feed("open the browser"))
	assert.Equal(t, domain.ModeIdle, g.State().Mode)

	assert.Equal(t, Woke, g.Feed("Hey agent"))
	assert.Equal(t, domain.ModeActive, g.State().Mode)
	assert.True(t, awake.held)

	assert.Equal(t, Forward, g.Feed("create a file"))

	assert.Equal(t, Slept, g.Feed("go to sleep"))
	assert.Equal(t, domain.ModeIdle, g.State().Mode)
	assert.Equal(t, 1, awake.releases)
}

func TestGateWakeToleratesTranscriptionNoise(t *testing.T) {
	t.Parallel()

	g := NewGate(DefaultConfig(), nil)
	assert.Equal(t, Woke, g.Feed("hey, agents"))
}

func TestGateIdleNeverForwards(t *testing.T) {
	t.Parallel()

	g := NewGate(DefaultConfig(), nil)
	for _, text := range []string{"bye agent", "search flights", "", "   "} {
		assert.Equal(t, Ignored, g.Feed(text), text)
	}
}

func TestGateSleepCheckedFirstWhileActive(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SleepPhrases = append(cfg.SleepPhrases, "hey agent")
	g := NewGate(cfg, nil)
	require.Equal(t, Woke, g.Feed("hey agent"))
	assert.Equal(t, Slept, g.Feed("hey agent"))
}

func TestGateCollaboratorFailureDoesNotBlockTransition(t *testing.T) {
	t.Parallel()

	g := NewGate(DefaultConfig(), &fakeAwake{err: errors.New("no systemd-inhibit")})
	assert.Equal(t, Woke, g.Feed("computer"))
	assert.Equal(t, domain.ModeActive, g.State().Mode)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"no wake":        func(c *Config) { c.WakePhrases = nil },
		"no sleep":       func(c *Config) { c.SleepPhrases = nil },
		"threshold high": func(c *Config) { c.Threshold = 101 },
		"threshold low":  func(c *Config) { c.Threshold = -1 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, name)
	}
}
