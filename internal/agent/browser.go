package agent

import (
	"context"
	log "log/slog"
	"regexp"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
)

// Browsers are tried in order when a new window or tab is needed.
var Browsers = []string{"firefox", "google-chrome", "chromium-browser", "chromium"}

// navKeys is checked in order; the first phrase found wins.
var navKeys = []struct{ phrase, keys string }{
	{"close tab", "ctrl+w"},
	{"next tab", "ctrl+Tab"},
	{"previous tab", "ctrl+shift+Tab"},
	{"prev tab", "ctrl+shift+Tab"},
	{"back", "Alt+Left"},
	{"forward", "Alt+Right"},
	{"scroll to top", "Home"},
	{"scroll to bottom", "End"},
	{"scroll down", "Page_Down"},
	{"scroll up", "Page_Up"},
}

var (
	schemeRe        = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	browserSearchRe = regexp.MustCompile(`(?i)browser search|type in address bar|search for|search`)
)

// Browser drives the focused browser window with keystrokes.
type Browser struct {
	desktop ports.Desktop
}

func NewBrowser(desktop ports.Desktop) *Browser {
	return &Browser{desktop: desktop}
}

func (b *Browser) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	t := strings.ToLower(strings.TrimSpace(cmd.RawText))
	action, _ := cmd.Slot(domain.SlotBrowserAction)

	if strings.Contains(t, "new tab") || action == "new_tab" {
		if _, err := b.desktop.Launch(Browsers, "--new-tab", "about:blank"); err != nil {
			log.Warn("Failed to open tab", "err", err)
			return domain.Say("I couldn't open a new tab.")
		}
		return domain.Say("Opened a new tab.")
	}

	if strings.Contains(t, "address bar") && !strings.Contains(t, "type in address bar") {
		return b.keys("ctrl+l", "Address bar focused.")
	}

	if target, ok := cmd.Slot(domain.SlotGotoTarget); ok && target != "" {
		u := strings.Trim(target, `"' `)
		if !schemeRe.MatchString(u) {
			u = "https://" + u
		}
		if err := b.desktop.OpenURL(u); err != nil {
			log.Warn("Failed to open url", "url", u, "err", err)
			return domain.Say("I couldn't open " + target + ".")
		}
		return domain.Say("Opening " + target + ".")
	}

	if action == "close_tab" {
		return b.keys("ctrl+w", "Done.")
	}
	for _, n := range navKeys {
		if strings.Contains(t, n.phrase) {
			return b.keys(n.keys, "Done.")
		}
	}

	if containsAny(t, "browser search", "type in address bar") {
		q, _ := cmd.Slot(domain.SlotSearchQuery)
		if q == "" {
			q = strings.Join(strings.Fields(browserSearchRe.ReplaceAllString(cmd.RawText, "")), " ")
		}
		if err := b.typeInOmnibox(q); err != nil {
			log.Warn("Failed to type in browser", "err", err)
			return domain.Say("I couldn't type in the browser.")
		}
		return domain.Say("Searching for " + q + ".")
	}

	log.Debug("No browser action matched", "text", cmd.RawText)
	return domain.Say("I'm not sure what to do in the browser.")
}

func (b *Browser) keys(keys, ok string) domain.Reply {
	if err := b.desktop.SendKeys(keys); err != nil {
		log.Warn("Failed to send keys", "keys", keys, "err", err)
		return domain.Say("I couldn't reach the browser window.")
	}
	return domain.Say(ok)
}

func (b *Browser) typeInOmnibox(text string) error {
	if err := b.desktop.SendKeys("ctrl+l"); err != nil {
		return err
	}
	if err := b.desktop.TypeText(text); err != nil {
		return err
	}
	return b.desktop.SendKeys("Return")
}
