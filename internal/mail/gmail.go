// Package mail reads the inbox over the Gmail REST API with a stored
// refresh token. Obtaining that token is left to external tooling.
package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"hark/internal/ports"
)

const (
	DefaultBaseURL  = "https://gmail.googleapis.com"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

var (
	ErrNoToken = errors.New("gmail token not configured")
	ErrAPI     = errors.New("gmail api error")
)

// authorizedUser is the token file written by Google's installed-app flow.
type authorizedUser struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
}

type Gmail struct {
	base   string
	client *http.Client
}

// NewGmail loads the token file at path. A nil transport uses the default
// client.
func NewGmail(path, baseURL string, transport *http.Client) (*Gmail, error) {
	if path == "" {
		return nil, ErrNoToken
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gmail token: %w", err)
	}
	var au authorizedUser
	if err := json.Unmarshal(data, &au); err != nil {
		return nil, fmt.Errorf("parse gmail token: %w", err)
	}
	if au.RefreshToken == "" {
		return nil, ErrNoToken
	}
	if au.TokenURI == "" {
		au.TokenURI = defaultTokenURL
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cfg := &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: au.TokenURI, AuthStyle: oauth2.AuthStyleInParams},
	}
	ctx := context.Background()
	if transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, transport)
	}
	return &Gmail{
		base:   strings.TrimRight(baseURL, "/"),
		client: cfg.Client(ctx, &oauth2.Token{RefreshToken: au.RefreshToken}),
	}, nil
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type part struct {
	MimeType string   `json:"mimeType"`
	Headers  []header `json:"headers"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []part `json:"parts"`
}

type message struct {
	ID           string `json:"id"`
	Snippet      string `json:"snippet"`
	InternalDate string `json:"internalDate"`
	Payload      part   `json:"payload"`
}

func (g *Gmail) Recent(ctx context.Context, n int) ([]ports.MailSummary, error) {
	q := url.Values{"labelIds": {"INBOX"}, "maxResults": {strconv.Itoa(n)}}
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := g.get(ctx, "/gmail/v1/users/me/messages?"+q.Encode(), &list); err != nil {
		return nil, err
	}

	out := make([]ports.MailSummary, 0, len(list.Messages))
	for _, m := range list.Messages {
		meta := url.Values{"format": {"metadata"}, "metadataHeaders": {"From", "Subject", "Date"}}
		var msg message
		if err := g.get(ctx, "/gmail/v1/users/me/messages/"+url.PathEscape(m.ID)+"?"+meta.Encode(), &msg); err != nil {
			return nil, err
		}
		s := ports.MailSummary{
			ID:      msg.ID,
			From:    headerValue(msg.Payload.Headers, "From"),
			Subject: headerValue(msg.Payload.Headers, "Subject"),
			Snippet: msg.Snippet,
		}
		if ms, err := strconv.ParseInt(msg.InternalDate, 10, 64); err == nil {
			s.Date = time.UnixMilli(ms)
		}
		out = append(out, s)
	}
	return out, nil
}

func (g *Gmail) Body(ctx context.Context, id string) (string, error) {
	var msg message
	if err := g.get(ctx, "/gmail/v1/users/me/messages/"+url.PathEscape(id)+"?format=full", &msg); err != nil {
		return "", err
	}
	if text, ok := plainText(msg.Payload); ok {
		return text, nil
	}
	return msg.Snippet, nil
}

// plainText returns the first text/plain part, depth first.
func plainText(p part) (string, bool) {
	if strings.HasPrefix(p.MimeType, "text/plain") && p.Body.Data != "" {
		b, err := base64.URLEncoding.DecodeString(padBase64(p.Body.Data))
		if err == nil {
			return string(b), true
		}
	}
	for _, c := range p.Parts {
		if t, ok := plainText(c); ok {
			return t, true
		}
	}
	return "", false
}

func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return s
}

func headerValue(hs []header, name string) string {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (g *Gmail) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrAPI, res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrAPI, err)
	}
	return nil
}
