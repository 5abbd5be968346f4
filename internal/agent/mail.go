package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"hark/internal/dialog"
	"hark/internal/domain"
	"hark/internal/ports"
)

const (
	mailListed    = 3
	mailBodyLimit = 400
	subjectLimit  = 80

	mailDeclined = "Okay, I won't read it."
)

// Mail reads recent subjects and offers to read the newest message. The
// offer stays pending until the user answers yes or no.
type Mail struct {
	box     ports.Mailbox
	timeout time.Duration

	pending *ports.MailSummary
}

func NewMail(box ports.Mailbox, timeout time.Duration) *Mail {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mail{box: box, timeout: timeout}
}

// Active reports a pending "read the latest one?" question.
func (m *Mail) Active() bool { return m.pending != nil }

func (m *Mail) Handle(ctx context.Context, _ domain.Command) domain.Reply {
	m.pending = nil
	if m.box == nil {
		return domain.Say("Mail is not configured.")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	msgs, err := m.box.Recent(ctx, mailListed)
	if err != nil {
		log.Warn("Failed to list mail", "err", err)
		return domain.Say("I couldn't reach your mailbox.")
	}
	if len(msgs) == 0 {
		return domain.Say("Your inbox is empty.")
	}

	parts := make([]string, len(msgs))
	for i, s := range msgs {
		parts[i] = fmt.Sprintf("from %s: %s", sender(s.From), subject(s.Subject))
	}
	latest := msgs[0]
	m.pending = &latest
	return domain.Say(fmt.Sprintf("You have %d recent emails. %s. Should I read the latest one?", len(msgs), strings.Join(parts, "; ")))
}

// Continue answers the pending question. A cancel phrase counts as no.
func (m *Mail) Continue(ctx context.Context, cmd domain.Command) domain.Reply {
	text := commandText(cmd)
	switch {
	case dialog.IsCancel(text):
		m.pending = nil
		return domain.Say(mailDeclined)
	case dialog.IsYes(text):
		msg := *m.pending
		m.pending = nil
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		body, err := m.box.Body(ctx, msg.ID)
		if err != nil {
			log.Warn("Failed to read mail body", "id", msg.ID, "err", err)
			body = msg.Snippet
		}
		body = strings.Join(strings.Fields(body), " ")
		body = truncate(body, mailBodyLimit)
		if body == "" {
			body = "The message has no text."
		}
		return domain.Say(fmt.Sprintf("From %s. %s. %s", sender(msg.From), subject(msg.Subject), body))
	case dialog.IsNo(text):
		m.pending = nil
		return domain.Say(mailDeclined)
	}
	return domain.Say("Should I read the latest email? Please say yes or no.")
}

// sender drops the address part of a From header.
func sender(from string) string {
	if i := strings.Index(from, "<"); i > 0 {
		from = from[:i]
	}
	from = strings.Trim(strings.TrimSpace(from), `"`)
	if from == "" {
		return "Unknown"
	}
	return from
}

func subject(s string) string {
	if s == "" {
		return "(no subject)"
	}
	return truncate(s, subjectLimit)
}

// truncate cuts s to at most limit runes, the last three of which become
// "..." when anything was dropped.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}
