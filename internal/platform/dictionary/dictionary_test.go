package dictionary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/platform/dictionary"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serendipityJSON = `[
  {
    "word": "serendipity",
    "origin": "1754: coined by Horace Walpole.",
    "meanings": [
      {"partOfSpeech": "noun", "definitions": [{"definition": "A combination of events..."}]}
    ],
    "sourceUrls": ["https://en.wiktionary.org/wiki/serendipity"]
  },
  {
    "word": "serendipity",
    "meanings": [
      {"partOfSpeech": "Noun", "definitions": []},
      {"partOfSpeech": "adjective", "definitions": []}
    ]
  }
]`

func newServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &path
}

func TestLookup(t *testing.T) {
	srv, path := newServer(t, http.StatusOK, serendipityJSON)
	c, err := dictionary.New(srv.URL+"/api/v2/entries/en/", nil, nil)
	require.NoError(t, err)

	def, err := c.Lookup(context.Background(), " Serendipity ")
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/entries/en/serendipity", *path)
	assert.Equal(t, "1754: coined by Horace Walpole.", def.Origin)
	assert.Equal(t, []string{"noun", "adjective"}, def.Tags)
	assert.Equal(t, "https://en.wiktionary.org/wiki/serendipity", def.Source)
	assert.Nil(t, def.Rarity)
	assert.Nil(t, def.Frequency)
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"title": "No Definitions Found"}`, wantErr: provider.ErrNotFound},
		{name: "empty array", status: http.StatusOK, body: `[]`, wantErr: provider.ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, wantErr: provider.ErrTransientFailure},
		{name: "server error", status: http.StatusBadGateway, body: ``, wantErr: provider.ErrTransientFailure},
		{name: "bad request", status: http.StatusBadRequest, body: ``, wantErr: provider.ErrInvalidResponse},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantErr: provider.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			c, err := dictionary.New(srv.URL, nil, nil)
			require.NoError(t, err)

			_, err = c.Lookup(context.Background(), "word")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		})
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := dictionary.New("not a url", nil, nil)
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}
