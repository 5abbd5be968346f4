package agent

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"hark/internal/domain"
	"hark/internal/ports"
)

type fakeDesktop struct {
	mu        sync.Mutex
	available []string
	urls      []string
	paths     []string
	launched  [][]string
	killed    []string
	keys      []string
	typed     []string
	failURL   bool
}

func (d *fakeDesktop) OpenURL(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failURL {
		return errors.New("no browser")
	}
	d.urls = append(d.urls, url)
	return nil
}

func (d *fakeDesktop) OpenPath(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, path)
	return nil
}

func (d *fakeDesktop) Launch(candidates []string, args ...string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range candidates {
		if slices.Contains(d.available, c) {
			d.launched = append(d.launched, append([]string{c}, args...))
			return c, nil
		}
	}
	return "", errors.New("not installed")
}

func (d *fakeDesktop) KillByName(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.killed = append(d.killed, name)
	return nil
}

func (d *fakeDesktop) SendKeys(keys string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, keys)
	return nil
}

func (d *fakeDesktop) TypeText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed = append(d.typed, text)
	return nil
}

func (d *fakeDesktop) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.urls)
}

type fakeAwake struct {
	held    bool
	holdErr error
}

func (f *fakeAwake) Hold() error {
	if f.holdErr != nil {
		return f.holdErr
	}
	f.held = true
	return nil
}

func (f *fakeAwake) Release() error {
	f.held = false
	return nil
}

func (f *fakeAwake) Held() bool { return f.held }

type fakeSearcher struct {
	offers []domain.FlightOffer
	err    error
	got    []ports.FlightQuery
}

func (f *fakeSearcher) SearchFlights(_ context.Context, q ports.FlightQuery) ([]domain.FlightOffer, error) {
	f.got = append(f.got, q)
	return f.offers, f.err
}

type fakeInspector struct {
	procs  []ports.ProcessInfo
	load   ports.SystemLoad
	killed []int32
}

func (f *fakeInspector) Processes(context.Context) ([]ports.ProcessInfo, error) {
	return f.procs, nil
}

func (f *fakeInspector) Load(context.Context) (ports.SystemLoad, error) { return f.load, nil }

func (f *fakeInspector) Kill(_ context.Context, pid int32) error {
	f.killed = append(f.killed, pid)
	return nil
}

type fakeMailbox struct {
	msgs []ports.MailSummary
	body string
	err  error
}

func (f *fakeMailbox) Recent(_ context.Context, n int) ([]ports.MailSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.msgs[:min(n, len(f.msgs))], nil
}

func (f *fakeMailbox) Body(context.Context, string) (string, error) { return f.body, f.err }

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (f *fakeSpeaker) Speak(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
	return nil
}

func (f *fakeSpeaker) Said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.said)
}

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func command(label, raw string, slots map[string]string) domain.Command {
	return domain.NewCommand(raw, raw, domain.Intent{Label: label, Confidence: 1}, nil, slots, testNow)
}
