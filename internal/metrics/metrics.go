// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hark/internal/dialog"
	"hark/internal/domain"
)

const namespace = "hark"

type Metrics struct {
	reg *prometheus.Registry

	Utterances         prometheus.Counter
	Transcripts        *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	Intents            *prometheus.CounterVec
	Routes             *prometheus.CounterVec
	DialogOutcomes     *prometheus.CounterVec
	TranscribeSeconds  prometheus.Histogram
}

// New registers all collectors on a fresh registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Utterances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Utterances emitted by the segmenter.",
		}),
		Transcripts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Transcription attempts by result.",
		}, []string{"result"}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session gate transitions by target mode.",
		}, []string{"mode"}),
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Resolved commands by intent label.",
		}, []string{"label"}),
		Routes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_total",
			Help:      "Routed commands by handler.",
		}, []string{"handler"}),
		DialogOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_outcomes_total",
			Help:      "Dialog turns by dialog and outcome.",
		}, []string{"dialog", "outcome"}),
		TranscribeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcribe_seconds",
			Help:      "Time spent transcribing one utterance.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Utterance() { m.Utterances.Inc() }

// Transcript counts one transcription by result (ok, empty, error).
func (m *Metrics) Transcript(result string, took time.Duration) {
	m.Transcripts.WithLabelValues(result).Inc()
	m.TranscribeSeconds.Observe(took.Seconds())
}

func (m *Metrics) Session(mode domain.SessionMode) {
	m.SessionTransitions.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) Intent(label string) { m.Intents.WithLabelValues(label).Inc() }

func (m *Metrics) Route(handler, _ string) { m.Routes.WithLabelValues(handler).Inc() }

// DialogObserver counts dialog outcomes for one named dialog.
func (m *Metrics) DialogObserver(name string) func(dialog.Outcome) {
	return func(o dialog.Outcome) {
		m.DialogOutcomes.WithLabelValues(name, o.String()).Inc()
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
