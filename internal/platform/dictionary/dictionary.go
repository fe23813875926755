// Package dictionary implements provider.DefinitionProvider on a
// dictionaryapi.dev compatible HTTP API.
package dictionary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"github.com/tidwall/gjson"
)

const (
	// Source is recorded on definitions from this provider.
	Source = "dictionaryapi"

	maxBodyBytes   = 1 << 20
	maxOriginRunes = 200
)

// Client looks words up over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ provider.DefinitionProvider = (*Client)(nil)

// New creates a client for baseURL. A nil httpClient uses one with a 10s
// timeout.
func New(baseURL string, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid dictionary base url %q", provider.ErrInvalidConfig, baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.With(slog.String("component", "dictionary")),
	}, nil
}

// Lookup implements provider.DefinitionProvider.
func (c *Client) Lookup(ctx context.Context, word string) (*provider.Definition, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	word = strings.TrimSpace(word)
	if word == "" {
		return nil, provider.ErrNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(strings.ToLower(word)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", provider.ErrInvalidResponse, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("dictionary request failed",
			slog.String("word", word),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", provider.ErrTransientFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, provider.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: dictionary returned %d", provider.ErrTransientFailure, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: dictionary returned %d", provider.ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", provider.ErrTransientFailure, err)
	}

	def, err := parseEntries(body)
	if err != nil {
		log.Warn("unparseable dictionary response",
			slog.String("word", word),
			slog.String("error", err.Error()))
		return nil, err
	}
	return def, nil
}

// parseEntries reads the first entry's origin and the parts of speech of all
// entries as tags.
func parseEntries(body []byte) (*provider.Definition, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not JSON", provider.ErrInvalidResponse)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() || len(root.Array()) == 0 {
		return nil, provider.ErrNotFound
	}

	def := &provider.Definition{
		Origin: truncateRunes(strings.TrimSpace(root.Get("0.origin").String()), maxOriginRunes),
		Tags:   []string{},
		Source: Source,
	}

	seen := map[string]bool{}
	root.Get("#.meanings.#.partOfSpeech").ForEach(func(_, entry gjson.Result) bool {
		entry.ForEach(func(_, pos gjson.Result) bool {
			tag := strings.ToLower(strings.TrimSpace(pos.String()))
			if tag != "" && !seen[tag] {
				seen[tag] = true
				def.Tags = append(def.Tags, tag)
			}
			return true
		})
		return true
	})

	if src := root.Get("0.sourceUrls.0"); src.Exists() && src.String() != "" {
		def.Source = src.String()
	}
	return def, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
