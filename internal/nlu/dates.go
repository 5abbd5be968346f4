package nlu

import (
	"context"
	log "log/slog"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"hark/internal/domain"
)

// DateExtractor finds natural date and time phrases ("tomorrow at 5pm",
// "in 10 minutes") and resolves them against the clock.
type DateExtractor struct {
	w   *when.Parser
	now func() time.Time
}

func NewDateExtractor(now func() time.Time) *DateExtractor {
	if now == nil {
		now = time.Now
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &DateExtractor{w: w, now: now}
}

func (d *DateExtractor) ExtractEntities(_ context.Context, text string) []domain.Entity {
	r, err := d.w.Parse(text, d.now())
	if err != nil {
		log.Debug("Date parse failed", "text", text, "err", err)
		return nil
	}
	if r == nil {
		return nil
	}
	return []domain.Entity{{Label: "DATE", Text: r.Text}}
}

// Parse resolves a phrase to an absolute time.
func (d *DateExtractor) Parse(text string) (time.Time, bool) {
	r, err := d.w.Parse(text, d.now())
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}
