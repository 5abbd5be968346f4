// Package config loads hark.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hark/internal/agent"
	"hark/internal/nlu"
	"hark/internal/session"
	"hark/internal/travel"
	"hark/internal/vad"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Session    SessionConfig        `yaml:"session"`
	Audio      AudioConfig          `yaml:"audio"`
	Transcribe TranscribeConfig     `yaml:"transcribe"`
	NLU        NLUConfig            `yaml:"nlu"`
	Booking    agent.BookingConfig  `yaml:"booking"`
	Amadeus    travel.AmadeusConfig `yaml:"amadeus"`
	Mail       MailConfig           `yaml:"mail"`
	EventLog   string               `yaml:"event_log"`
	Proxy      string               `yaml:"proxy"`
	Metrics    string               `yaml:"metrics"`
	Bus        string               `yaml:"bus"`
	Speak      bool                 `yaml:"speak"`
	Voice      string               `yaml:"voice"`
	Chime      string               `yaml:"chime"`
	Duck       float64              `yaml:"duck"`
}

type SessionConfig struct {
	WakePhrases  []string `yaml:"wake_phrases"`
	SleepPhrases []string `yaml:"sleep_phrases"`
	Threshold    int      `yaml:"threshold"`
}

type AudioConfig struct {
	SampleRate      int           `yaml:"sample_rate"`
	FrameDuration   time.Duration `yaml:"frame"`
	Hangover        time.Duration `yaml:"hangover"`
	MinUtterance    time.Duration `yaml:"min_utterance"`
	MaxUtterance    time.Duration `yaml:"max_utterance"`
	EnergyThreshold float64       `yaml:"energy_threshold"`
}

type TranscribeConfig struct {
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Threads  int           `yaml:"threads"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NLUConfig struct {
	LLM             bool          `yaml:"llm"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"-"`
	CleanupWait     time.Duration `yaml:"cleanup_wait"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ConfidenceFloor float64       `yaml:"confidence_floor"`
	FuzzyThreshold  int           `yaml:"fuzzy_threshold"`
}

type MailConfig struct {
	TokenFile string        `yaml:"token_file"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

func Default() Config {
	s := session.DefaultConfig()
	v := vad.DefaultConfig()
	n := nlu.DefaultConfig()

	home, _ := os.UserHomeDir()
	return Config{
		Session: SessionConfig{
			WakePhrases:  s.WakePhrases,
			SleepPhrases: s.SleepPhrases,
			Threshold:    s.Threshold,
		},
		Audio: AudioConfig{
			SampleRate:      v.SampleRate,
			FrameDuration:   v.FrameDuration,
			Hangover:        v.Hangover,
			MinUtterance:    v.MinUtterance,
			MaxUtterance:    v.MaxUtterance,
			EnergyThreshold: v.EnergyThreshold,
		},
		Transcribe: TranscribeConfig{
			Model:    "models/ggml-base.en.bin",
			Language: "en",
			Threads:  4,
			Timeout:  30 * time.Second,
		},
		NLU: NLUConfig{
			CleanupWait:     n.CleanupWait,
			CallTimeout:     n.CallTimeout,
			CacheTTL:        n.CacheTTL,
			ConfidenceFloor: n.ConfidenceFloor,
			FuzzyThreshold:  n.FuzzyThreshold,
		},
		Booking:  agent.DefaultBookingConfig(),
		Amadeus:  travel.AmadeusConfig{BaseURL: travel.DefaultAmadeusURL},
		Mail:     MailConfig{Timeout: 10 * time.Second},
		EventLog: filepath.Join(home, ".local", "state", "hark", "events.jsonl"),
		Voice:    "en",
		Duck:     0.3,
	}
}

// Load reads path over the defaults, then applies the environment. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := envList("HARK_WAKE_PHRASES"); v != nil {
		c.Session.WakePhrases = v
	}
	if v := envList("HARK_SLEEP_PHRASES"); v != nil {
		c.Session.SleepPhrases = v
	}
	c.Session.Threshold = envOrDefaultInt("HARK_THRESHOLD", c.Session.Threshold)
	c.Audio.EnergyThreshold = envOrDefaultFloat("HARK_ENERGY_THRESHOLD", c.Audio.EnergyThreshold)
	c.Transcribe.Model = envOrDefault("HARK_MODEL", c.Transcribe.Model)
	c.Transcribe.Language = envOrDefault("HARK_LANGUAGE", c.Transcribe.Language)

	c.NLU.APIKey = envOrDefault("OPENAI_API_KEY", c.NLU.APIKey)
	c.NLU.BaseURL = envOrDefault("OPENAI_BASE_URL", c.NLU.BaseURL)
	c.NLU.Model = envOrDefault("HARK_LLM_MODEL", c.NLU.Model)
	c.NLU.LLM = envOrDefaultBool("HARK_LLM", c.NLU.LLM || c.NLU.APIKey != "")

	c.Amadeus.APIKey = envOrDefault("AMADEUS_API_KEY", c.Amadeus.APIKey)
	c.Amadeus.APISecret = envOrDefault("AMADEUS_API_SECRET", c.Amadeus.APISecret)
	c.Amadeus.BaseURL = envOrDefault("AMADEUS_BASE_URL", c.Amadeus.BaseURL)
	c.Booking.Currency = envOrDefault("HARK_CURRENCY", c.Booking.Currency)
	c.Booking.PaymentURL = envOrDefault("HARK_PAYMENT_URL", c.Booking.PaymentURL)

	c.Mail.TokenFile = envOrDefault("HARK_MAIL_TOKEN_FILE", c.Mail.TokenFile)
	c.EventLog = envOrDefault("HARK_EVENT_LOG", c.EventLog)
	c.Proxy = envOrDefault("HARK_PROXY", c.Proxy)
	c.Metrics = envOrDefault("HARK_METRICS_ADDR", c.Metrics)
	c.Bus = envOrDefault("HARK_BUS_URL", c.Bus)
	c.Speak = envOrDefaultBool("HARK_SPEAK", c.Speak)
	c.Voice = envOrDefault("HARK_VOICE", c.Voice)
	c.Chime = envOrDefault("HARK_CHIME", c.Chime)
	c.Duck = envOrDefaultFloat("HARK_DUCK", c.Duck)
}

func (c Config) SessionConfig() session.Config {
	return session.Config{
		WakePhrases:  c.Session.WakePhrases,
		SleepPhrases: c.Session.SleepPhrases,
		Threshold:    c.Session.Threshold,
	}
}

func (c Config) VAD() vad.Config {
	return vad.Config{
		SampleRate:      c.Audio.SampleRate,
		FrameDuration:   c.Audio.FrameDuration,
		Hangover:        c.Audio.Hangover,
		MinUtterance:    c.Audio.MinUtterance,
		MaxUtterance:    c.Audio.MaxUtterance,
		EnergyThreshold: c.Audio.EnergyThreshold,
	}
}

func (c Config) Resolver() nlu.Config {
	n := nlu.DefaultConfig()
	n.LLMEnabled = c.NLU.LLM
	n.CleanupWait = c.NLU.CleanupWait
	n.CallTimeout = c.NLU.CallTimeout
	n.CacheTTL = c.NLU.CacheTTL
	n.ConfidenceFloor = c.NLU.ConfidenceFloor
	n.FuzzyThreshold = c.NLU.FuzzyThreshold
	return n
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	for _, err := range []error{c.SessionConfig().Validate(), c.VAD().Validate(), c.Resolver().Validate()} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if c.Transcribe.Timeout <= 0 {
		errs = append(errs, errors.New("transcribe timeout must be positive"))
	}
	if c.Booking.SearchTimeout <= 0 {
		errs = append(errs, errors.New("booking search timeout must be positive"))
	}
	if c.Duck < 0 || c.Duck > 1 {
		errs = append(errs, errors.New("duck factor must be within [0,1]"))
	}
	if c.NLU.LLM && c.NLU.APIKey == "" {
		errs = append(errs, errors.New("llm enabled without OPENAI_API_KEY"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envList splits a comma separated variable. Unset returns nil.
func envList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
