package nlu

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/domain"
	"hark/internal/ports"
)

type fakeEnhancer struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, text string) (string, error)
}

func (f *fakeEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, text)
}

func (f *fakeEnhancer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRefiner struct {
	ref   ports.Refinement
	err   error
	calls int
}

func (f *fakeRefiner) Refine(context.Context, string) (ports.Refinement, error) {
	f.calls++
	return f.ref, f.err
}

type noEntities struct{}

func (noEntities) ExtractEntities(context.Context, string) []domain.Entity { return nil }

func testResolver(cfg Config, opts ...Option) *Resolver {
	base := []Option{
		WithEntityExtractor(noEntities{}),
		WithClock(func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }),
	}
	return NewResolver(cfg, append(base, opts...)...)
}

func llmConfig() Config {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	cfg.CleanupWait = 200 * time.Millisecond
	cfg.CallTimeout = time.Second
	return cfg
}

func TestResolveKeepsSubcommandOrder(t *testing.T) {
	t.Parallel()

	r := testResolver(DefaultConfig())
	cmds := r.Resolve(context.Background(), "open the downloads folder and create a file then quit spotify")
	require.Len(t, cmds, 3)
	assert.Equal(t, "open the downloads folder", cmds[0].RawText)
	assert.Equal(t, domain.IntentFileManage, cmds[0].Intent.Label)
	assert.Equal(t, domain.IntentFileMissingName, cmds[1].Intent.Label)
	assert.Equal(t, domain.IntentClose, cmds[2].Intent.Label)
	for _, c := range cmds {
		assert.Equal(t, 1.0, c.Intent.Confidence)
	}
	assert.Empty(t, r.Resolve(context.Background(), "   "))
}

func TestResolveUsesCleanedText(t *testing.T) {
	t.Parallel()

	r := testResolver(DefaultConfig())
	cmds := r.Resolve(context.Background(), "oppen the bowser")
	require.Len(t, cmds, 1)
	assert.Equal(t, "oppen the bowser", cmds[0].RawText)
	assert.Equal(t, "open the browser", cmds[0].CleanedText)
	assert.Equal(t, domain.IntentAppOpen, cmds[0].Intent.Label)
}

func TestResolveFallsBackToRawText(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Name: "raw-only", Label: domain.IntentMusicPlay, Match: func(t string) bool {
		return t == "oppen the bowser"
	}}}
	r := testResolver(DefaultConfig(), WithRules(rules))
	cmds := r.Resolve(context.Background(), "oppen the bowser")
	require.Len(t, cmds, 1)
	assert.Equal(t, "open the browser", cmds[0].CleanedText)
	assert.Equal(t, domain.IntentMusicPlay, cmds[0].Intent.Label)
}

func TestCleanupRestoresFrozenKeywords(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(_ context.Context, text string) (string, error) {
		assert.NotContains(t, text, "hotel")
		return strings.ReplaceAll(text, "cheep", "cheap"), nil
	}}
	r := testResolver(llmConfig(), WithEnhancer(enh))
	assert.Equal(t, "find a cheap hotel", r.Cleanup(context.Background(), "find a cheep hotel"))
}

func TestCleanupRejectsOutputThatDropsKeywords(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(context.Context, string) (string, error) {
		return "find a cheap inn", nil
	}}
	r := testResolver(llmConfig(), WithEnhancer(enh))
	assert.Equal(t, "find a cheep hotel", r.Cleanup(context.Background(), "find a cheep hotel"))
}

func TestCleanupFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	r := testResolver(llmConfig(), WithEnhancer(enh))
	assert.Equal(t, "open the browser", r.Cleanup(context.Background(), "oppen the bowser"))
}

func TestCleanupTimeoutReturnsLocal(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	enh := &fakeEnhancer{fn: func(ctx context.Context, text string) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return text, nil
	}}
	r := testResolver(llmConfig(), WithEnhancer(enh))

	start := time.Now()
	assert.Equal(t, "open the browser", r.Cleanup(context.Background(), "oppen the bowser"))
	assert.Less(t, time.Since(start), time.Second)
	close(release)
}

func TestCleanupCachesByRawInput(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(_ context.Context, text string) (string, error) { return text, nil }}
	r := testResolver(llmConfig(), WithEnhancer(enh))

	for i := 0; i < 3; i++ {
		r.Cleanup(context.Background(), "open the browser")
	}
	assert.Equal(t, 1, enh.Calls())
}

func TestCleanupDisabledSkipsEnhancer(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(context.Context, string) (string, error) { return "changed", nil }}
	r := testResolver(DefaultConfig(), WithEnhancer(enh))
	assert.Equal(t, "open the browser", r.Cleanup(context.Background(), "open the browser"))
	assert.Zero(t, enh.Calls())
}

func TestCleanupKeepsProtectedWordsWithHostileEnhancer(t *testing.T) {
	t.Parallel()

	enh := &fakeEnhancer{fn: func(_ context.Context, text string) (string, error) {
		return strings.ToUpper(strings.ReplaceAll(text, "__KW_0__", "")), nil
	}}
	r := testResolver(llmConfig(), WithEnhancer(enh))
	for _, w := range DefaultFrozen {
		out := r.Cleanup(context.Background(), "show me the "+w)
		assert.Contains(t, strings.Fields(out), w)
	}
}

func TestRefineOnlyForUnknown(t *testing.T) {
	t.Parallel()

	ref := &fakeRefiner{ref: ports.Refinement{Intent: domain.IntentWebSearch, Confidence: 0.9, NormalizedText: "search who won the match"}}
	r := testResolver(llmConfig(), WithRefiner(ref))

	cmds := r.Resolve(context.Background(), "quit spotify")
	require.Len(t, cmds, 1)
	assert.Equal(t, domain.IntentClose, cmds[0].Intent.Label)
	assert.Zero(t, ref.calls)

	cmds = r.Resolve(context.Background(), "who won the match")
	require.Len(t, cmds, 1)
	assert.Equal(t, domain.IntentWebSearch, cmds[0].Intent.Label)
	assert.InDelta(t, 0.9, cmds[0].Intent.Confidence, 1e-9)
	v, _ := cmds[0].Slot(domain.SlotSearchQuery)
	assert.Equal(t, "who won the match", v)
	assert.Equal(t, 1, ref.calls)
}

func TestRefineBelowFloorIsIgnored(t *testing.T) {
	t.Parallel()

	cases := []ports.Refinement{
		{Intent: domain.IntentWebSearch, Confidence: 0.1},
		{Intent: "weather.get", Confidence: 0.9},
		{Intent: domain.IntentUnknown, Confidence: 1},
	}
	for _, c := range cases {
		r := testResolver(llmConfig(), WithRefiner(&fakeRefiner{ref: c}))
		cmds := r.Resolve(context.Background(), "who won the match")
		require.Len(t, cmds, 1)
		assert.Equal(t, domain.IntentUnknown, cmds[0].Intent.Label)
		assert.Zero(t, cmds[0].Intent.Confidence)
	}

	r := testResolver(llmConfig(), WithRefiner(&fakeRefiner{err: errors.New("down")}))
	assert.Equal(t, domain.IntentUnknown, r.Resolve(context.Background(), "who won the match")[0].Intent.Label)
}

func TestRefineConfidenceIsClamped(t *testing.T) {
	t.Parallel()

	r := testResolver(llmConfig(), WithRefiner(&fakeRefiner{ref: ports.Refinement{Intent: domain.IntentMusicPlay, Confidence: 3}}))
	cmds := r.Resolve(context.Background(), "something groovy")
	assert.Equal(t, 1.0, cmds[0].Intent.Confidence)
}

func TestParseRefinement(t *testing.T) {
	t.Parallel()

	got, err := parseRefinement("```json\n{\"intent\":\"close\",\"confidence\":0.7}\n```")
	require.NoError(t, err)
	assert.Equal(t, "close", got.Intent)

	_, err = parseRefinement("not json")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.ConfidenceFloor = 2
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
	bad = DefaultConfig()
	bad.CleanupWait = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

func TestTTLCacheExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	c := newTTLCache(time.Minute, func() time.Time { return now })
	c.set("k", "v")
	v, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("k")
	assert.False(t, ok)
}
