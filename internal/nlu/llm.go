package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/sony/gobreaker"

	"hark/internal/ports"
)

var ErrEmptyCompletion = errors.New("empty completion")

const cleanupPrompt = `You are a speech post-processor. Only fix spelling and spacing.
Do not change intent. Do not replace domain words.
Tokens of the form __KW_<n>__ are placeholders and must be copied unchanged.
Return a single cleaned line and nothing else.`

const refinePrompt = `You are the intent classifier of a desktop voice agent.
Convert the user's utterance into a minimal JSON object. Do not converse.
Output ONLY JSON, no markdown:

{"intent": "<label>", "confidence": <0..1>, "normalized_text": "<cleaned command>"}

Allowed labels:
- "booking.search"   flights, buses, trains, hotels, movies, selecting an option
- "browser.control"  tabs, scrolling, back/forward, go to a website
- "file.manage"      create/open/delete/append/close files, open folders
- "mail.read"        read or check email
- "app.open"         open or launch an application
- "reminder.create"  set a reminder
- "process.monitor"  slow machine, top cpu or memory processes
- "sleep.control"    keep the machine awake or allow sleep
- "web.search"       search the web
- "music.play"       play music
- "close"            close or quit an application
- "unknown"          anything else

If the meaning is unclear use "unknown" with confidence 0.
`

// OpenAIBackend serves both LLM stages on a chat completion model.
type OpenAIBackend struct {
	client  openai.Client
	model   string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func NewOpenAIBackend(client openai.Client, model string, timeout time.Duration) *OpenAIBackend {
	if model == "" {
		model = string(openai.ChatModelGPT5Nano)
	}
	return &OpenAIBackend{
		client:  client,
		model:   model,
		timeout: timeout,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "llm",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (b *OpenAIBackend) complete(ctx context.Context, system, user string) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Model: openai.ChatModel(b.model),
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyCompletion
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return "", ErrEmptyCompletion
		}
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *OpenAIBackend) Enhance(ctx context.Context, text string) (string, error) {
	out, err := b.complete(ctx, cleanupPrompt, text)
	if err != nil {
		return "", err
	}
	log.Debug("Enhanced", "in", text, "out", out)
	return out, nil
}

func (b *OpenAIBackend) Refine(ctx context.Context, text string) (ports.Refinement, error) {
	content, err := b.complete(ctx, refinePrompt, text)
	if err != nil {
		return ports.Refinement{}, err
	}
	log.Debug("Refined", "data", content)
	return parseRefinement(content)
}

func parseRefinement(content string) (ports.Refinement, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out ports.Refinement
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return ports.Refinement{}, fmt.Errorf("unmarshal refinement: %w (raw: %s)", err, content)
	}
	return out, nil
}
