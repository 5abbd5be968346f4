// Package nlu turns transcribed text into resolved commands: split,
// cleanup, optional LLM cleanup, ordered rules, optional LLM refinement
// and slot normalization.
package nlu

import (
	"context"
	"errors"
	log "log/slog"
	"slices"
	"strings"
	"time"

	"hark/internal/domain"
	"hark/internal/ports"
)

var ErrInvalidConfig = errors.New("invalid nlu config")

type Config struct {
	LLMEnabled      bool
	CleanupWait     time.Duration
	CallTimeout     time.Duration
	CacheTTL        time.Duration
	ConfidenceFloor float64
	FuzzyThreshold  int
	Protected       []string
	Frozen          []string
	Corrections     map[string]string
}

func DefaultConfig() Config {
	return Config{
		CleanupWait:     2 * time.Second,
		CallTimeout:     5 * time.Second,
		CacheTTL:        300 * time.Second,
		ConfidenceFloor: 0.1,
		FuzzyThreshold:  70,
		Protected:       DefaultProtected,
		Frozen:          DefaultFrozen,
		Corrections:     DefaultCorrections,
	}
}

func (c Config) Validate() error {
	switch {
	case c.CleanupWait <= 0 || c.CallTimeout <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("llm timeouts must be positive"))
	case c.CacheTTL < 0:
		return errors.Join(ErrInvalidConfig, errors.New("cache ttl must not be negative"))
	case c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1:
		return errors.Join(ErrInvalidConfig, errors.New("confidence floor must be within [0,1]"))
	case c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100:
		return errors.Join(ErrInvalidConfig, errors.New("fuzzy threshold must be within [0,100]"))
	}
	return nil
}

// Option customizes a Resolver.
type Option func(*Resolver)

func WithEnhancer(e ports.Enhancer) Option { return func(r *Resolver) { r.enhancer = e } }

func WithRefiner(f ports.Refiner) Option { return func(r *Resolver) { r.refiner = f } }

func WithEntityExtractor(e ports.EntityExtractor) Option {
	return func(r *Resolver) { r.extractor = e }
}

func WithTimeParser(p TimeParser) Option { return func(r *Resolver) { r.parseTime = p } }

func WithRules(rules []Rule) Option { return func(r *Resolver) { r.rules = rules } }

func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// Observer is told the label of every resolved command.
type Observer func(label string)

func WithObserver(o Observer) Option { return func(r *Resolver) { r.observe = o } }

type Resolver struct {
	cfg       Config
	cleaner   *Cleaner
	freezer   *freezer
	cache     *ttlCache
	rules     []Rule
	enhancer  ports.Enhancer
	refiner   ports.Refiner
	extractor ports.EntityExtractor
	parseTime TimeParser
	now       func() time.Time
	observe   Observer
}

func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:     cfg,
		cleaner: NewCleaner(slices.Concat(cfg.Protected, cfg.Frozen), cfg.Corrections, cfg.FuzzyThreshold),
		freezer: newFreezer(slices.Concat(cfg.Frozen, cfg.Protected)),
		rules:   DefaultRules(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.cache = newTTLCache(cfg.CacheTTL, r.now)
	if r.extractor == nil && r.parseTime == nil {
		d := NewDateExtractor(r.now)
		r.extractor = d
		r.parseTime = d.Parse
	}
	return r
}

// Resolve returns one command per subcommand, in spoken order.
func (r *Resolver) Resolve(ctx context.Context, text string) []domain.Command {
	parts := Split(text)
	cmds := make([]domain.Command, 0, len(parts))
	for _, p := range parts {
		cmds = append(cmds, r.build(ctx, p))
	}
	return cmds
}

func (r *Resolver) build(ctx context.Context, raw string) domain.Command {
	cleaned := r.Cleanup(ctx, raw)

	label, rule, ok := Classify(r.rules, cleaned)
	if !ok {
		label, rule, ok = Classify(r.rules, raw)
	}
	intent := domain.Intent{Label: label}
	if ok {
		intent.Confidence = 1
		log.Debug("Rule matched", "rule", rule, "label", label)
	}

	source := cleaned
	if !ok {
		if ref, accepted := r.refine(ctx, cleaned); accepted {
			intent = domain.Intent{Label: ref.Intent, Confidence: ref.Confidence}
			if ref.NormalizedText != "" {
				source = ref.NormalizedText
			}
		}
	}

	var entities []domain.Entity
	if r.extractor != nil {
		entities = r.extractor.ExtractEntities(ctx, source)
	}
	slots := ExtractSlots(entities, source, r.parseTime)

	if r.observe != nil {
		r.observe(intent.Label)
	}
	return domain.NewCommand(raw, cleaned, intent, entities, slots, r.now())
}

// Cleanup runs stages one and two. Stage two only runs with an enabled
// enhancer and never returns text that lost a protected word.
func (r *Resolver) Cleanup(ctx context.Context, raw string) string {
	local := r.cleaner.Clean(raw)
	if !r.cfg.LLMEnabled || r.enhancer == nil || local == "" {
		return local
	}
	if v, ok := r.cache.get(raw); ok {
		return v
	}

	frozen, placeholders := r.freezer.freeze(local)
	done := make(chan string, 1)

	// The call may outlive the wait; a late answer still warms the cache.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CallTimeout)
	go func() {
		defer cancel()
		out, err := r.enhancer.Enhance(callCtx, frozen)
		result := local
		switch {
		case err != nil:
			log.Debug("LLM cleanup failed", "err", err)
		case strings.TrimSpace(out) == "":
		case lostPlaceholder(out, placeholders):
			log.Debug("LLM cleanup dropped a protected word", "out", out)
		default:
			result = strings.Join(strings.Fields(r.freezer.restore(out, placeholders)), " ")
		}
		r.cache.set(raw, result)
		done <- result
	}()

	wait := time.NewTimer(r.cfg.CleanupWait)
	defer wait.Stop()
	select {
	case v := <-done:
		return v
	case <-wait.C:
		log.Debug("LLM cleanup timed out", "raw", raw)
		return local
	case <-ctx.Done():
		return local
	}
}

func (r *Resolver) refine(ctx context.Context, text string) (ports.Refinement, bool) {
	if !r.cfg.LLMEnabled || r.refiner == nil {
		return ports.Refinement{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	ref, err := r.refiner.Refine(ctx, text)
	if err != nil {
		log.Debug("LLM refine failed", "err", err)
		return ports.Refinement{}, false
	}
	if ref.Intent == "" || ref.Intent == domain.IntentUnknown || ref.Confidence <= r.cfg.ConfidenceFloor {
		return ports.Refinement{}, false
	}
	if !knownLabel(ref.Intent) {
		log.Warn("LLM refine returned unknown label", "label", ref.Intent)
		return ports.Refinement{}, false
	}
	ref.Confidence = min(max(ref.Confidence, 0), 1)
	return ref, true
}

var labels = []string{
	domain.IntentBookingSearch, domain.IntentBrowserControl, domain.IntentFileManage,
	domain.IntentFileMissingName, domain.IntentMailRead, domain.IntentAppOpen,
	domain.IntentReminderCreate, domain.IntentProcessMonitor, domain.IntentSleepControl,
	domain.IntentWebSearch, domain.IntentMusicPlay, domain.IntentClose,
}

func knownLabel(l string) bool { return slices.Contains(labels, l) }
