package agent

import (
	"context"
	log "log/slog"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
)

var allowSleepPhrases = []string{"allow sleep", "stop preventing sleep", "let it sleep", "disable keep awake", "stop keep awake"}

// Sleep holds or releases the sleep inhibitor. Anything that is not an
// explicit release keeps the machine awake.
type Sleep struct {
	awake ports.KeepAwake
}

func NewSleep(awake ports.KeepAwake) *Sleep {
	return &Sleep{awake: awake}
}

func (s *Sleep) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	t := strings.ToLower(cmd.RawText)

	if containsAny(t, allowSleepPhrases...) {
		if !s.awake.Held() {
			return domain.Say("Sleep is already allowed.")
		}
		if err := s.awake.Release(); err != nil {
			log.Warn("Failed to release sleep inhibitor", "err", err)
			return domain.Say("I couldn't stop preventing sleep.")
		}
		return domain.Say("Sleep prevention stopped.")
	}

	if s.awake.Held() {
		return domain.Say("Already preventing sleep.")
	}
	if err := s.awake.Hold(); err != nil {
		log.Warn("Failed to hold sleep inhibitor", "err", err)
		return domain.Say("I couldn't prevent sleep on this system.")
	}
	return domain.Say("I'll keep the system awake.")
}
