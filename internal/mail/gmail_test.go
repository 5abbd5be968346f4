package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeToken(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	body := fmt.Sprintf(`{"client_id":"cid","client_secret":"cs","refresh_token":"rt","token_uri":%q}`, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGmailRecentAndBody(t *testing.T) {
	t.Parallel()

	text := base64.RawURLEncoding.EncodeToString([]byte("Meeting moved to 3pm."))
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
		_, _ = w.Write([]byte(`{"messages":[{"id":"a1"}]}`))
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/a1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "full" {
			_, _ = fmt.Fprintf(w, `{"id":"a1","snippet":"Meeting","payload":{"mimeType":"multipart/alternative","parts":[
				{"mimeType":"text/html","body":{"data":"PGI-"}},
				{"mimeType":"text/plain","body":{"data":%q}}]}}`, text)
			return
		}
		_, _ = w.Write([]byte(`{"id":"a1","snippet":"Meeting","internalDate":"1791968400000","payload":{"headers":[
			{"name":"From","value":"Team <team@example.com>"},{"name":"Subject","value":"Standup"}]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g, err := NewGmail(writeToken(t, srv.URL+"/token"), srv.URL, srv.Client())
	require.NoError(t, err)

	msgs, err := g.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a1", msgs[0].ID)
	assert.Equal(t, "Team <team@example.com>", msgs[0].From)
	assert.Equal(t, "Standup", msgs[0].Subject)
	assert.Equal(t, int64(1791968400000), msgs[0].Date.UnixMilli())

	body, err := g.Body(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Meeting moved to 3pm.", body)
}

func TestGmailErrors(t *testing.T) {
	t.Parallel()

	_, err := NewGmail("", "", nil)
	assert.ErrorIs(t, err, ErrNoToken)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
			return
		}
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, err := NewGmail(writeToken(t, srv.URL+"/token"), srv.URL, srv.Client())
	require.NoError(t, err)
	_, err = g.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAPI)
}
