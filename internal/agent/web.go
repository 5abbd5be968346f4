package agent

import (
	"context"
	log "log/slog"
	"regexp"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
	"hark/internal/travel"
)

var webFillerRe = regexp.MustCompile(`(?i)web search|search for|search|look up|find|google`)

// Web opens a browser search for the spoken query.
type Web struct {
	desktop ports.Desktop
}

func NewWeb(desktop ports.Desktop) *Web {
	return &Web{desktop: desktop}
}

func (w *Web) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	q, _ := cmd.Slot(domain.SlotSearchQuery)
	if q == "" {
		q = strings.Join(strings.Fields(webFillerRe.ReplaceAllString(cmd.RawText, "")), " ")
	}
	if q == "" {
		q = "latest news"
	}

	log.Info("Web search", "query", q)
	if err := w.desktop.OpenURL(travel.GoogleSearchURL(q)); err != nil {
		log.Warn("Failed to open browser", "err", err)
		return domain.Say("I couldn't open the browser.")
	}
	return domain.Say("Opened browser with search results.")
}
