package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/phrazzld/wordmon-api/internal/config"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/provider"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
	definitionSource    = "gemini"
)

// contentGenerator is the slice of the genai client this package uses.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Provider implements the branch, fusion-word, hidden-move and definition
// providers on Gemini.
type Provider struct {
	models     contentGenerator
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

var (
	_ provider.BranchProvider     = (*Provider)(nil)
	_ provider.FusionWordProvider = (*Provider)(nil)
	_ provider.HiddenMoveProvider = (*Provider)(nil)
	_ provider.DefinitionProvider = (*Provider)(nil)
)

// New creates a Provider from cfg. An empty API key is a configuration
// error; callers that want to run without a model use provider.Unavailable.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Provider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", provider.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", provider.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", provider.ErrInvalidConfig, err)
	}

	return newProvider(client.Models, cfg, logger), nil
}

func newProvider(models contentGenerator, cfg config.LLMConfig, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Provider{
		models:     models,
		model:      cfg.Model,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     log.With(slog.String("component", "gemini"), slog.String("model", cfg.Model)),
		sleep:      sleepContext,
	}
}

// Branches implements provider.BranchProvider.
func (p *Provider) Branches(ctx context.Context, word string) (*provider.BranchSet, error) {
	var resp branchResponse
	if err := p.generate(ctx, promptBranches, promptData{Word: word}, &resp); err != nil {
		return nil, err
	}

	set := &provider.BranchSet{
		Family:     strings.ToLower(strings.TrimSpace(resp.Family)),
		Candidates: resp.Candidates,
	}
	set.Candidates = provider.SanitizeBranches(word, set)
	if len(set.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no usable branch candidates", provider.ErrInvalidResponse)
	}
	return set, nil
}

// AscendedWord implements provider.FusionWordProvider.
func (p *Provider) AscendedWord(ctx context.Context, family string, words []string) (string, error) {
	var resp ascendedResponse
	if err := p.generate(ctx, promptAscended, promptData{Family: family, Words: words}, &resp); err != nil {
		return "", err
	}

	word := strings.TrimSpace(resp.Word)
	if word == "" || strings.ContainsAny(word, " \t\n") {
		return "", fmt.Errorf("%w: ascended word %q is not a single word", provider.ErrInvalidResponse, resp.Word)
	}
	for _, member := range words {
		if strings.EqualFold(member, word) {
			return "", fmt.Errorf("%w: ascended word repeats member %q", provider.ErrInvalidResponse, member)
		}
	}
	return word, nil
}

// HiddenMove implements provider.HiddenMoveProvider.
func (p *Provider) HiddenMove(ctx context.Context, word string) (string, error) {
	var resp hiddenMoveResponse
	if err := p.generate(ctx, promptHiddenMove, promptData{Word: word}, &resp); err != nil {
		return "", err
	}

	move := strings.TrimSpace(resp.Move)
	if move == "" {
		return "", fmt.Errorf("%w: empty hidden move", provider.ErrInvalidResponse)
	}
	return move, nil
}

// Lookup implements provider.DefinitionProvider. The model never assigns
// rarity; it only supplies origin, tags and a frequency estimate.
func (p *Provider) Lookup(ctx context.Context, word string) (*provider.Definition, error) {
	var resp definitionResponse
	if err := p.generate(ctx, promptDefinition, promptData{Word: word}, &resp); err != nil {
		return nil, err
	}
	if resp.Unknown {
		return nil, provider.ErrNotFound
	}

	def := &provider.Definition{
		Origin: strings.TrimSpace(resp.Origin),
		Tags:   resp.Tags,
		Source: definitionSource,
	}
	if def.Tags == nil {
		def.Tags = []string{}
	}
	if resp.Zipf != nil && *resp.Zipf >= 0 {
		f := *resp.Zipf
		def.Frequency = &f
		def.FrequencySource = definitionSource
	}
	return def, nil
}

// generate renders the prompt, calls the model with retries and decodes the
// JSON reply into out.
func (p *Provider) generate(ctx context.Context, promptName string, data promptData, out any) error {
	prompt, err := renderPrompt(promptName, data)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}

	text, err := p.callWithRetry(ctx, prompt)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(stripCodeFence(text)), out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", provider.ErrInvalidResponse, err)
	}
	return nil
}

// callWithRetry calls the model up to maxRetries+1 times. Only API errors are
// retried; blocked or empty replies fail immediately.
func (p *Provider) callWithRetry(ctx context.Context, prompt string) (string, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	genConfig := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	for attempt := 0; ; attempt++ {
		resp, err := p.models.GenerateContent(ctx, p.model, contents, genConfig)
		if err == nil {
			text, perr := responseText(resp)
			if perr != nil {
				log.Warn("gemini returned unusable response",
					slog.Int("attempt", attempt+1),
					slog.String("error", perr.Error()))
				return "", perr
			}
			return text, nil
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", provider.ErrTransientFailure, ctx.Err())
		}

		log.Error("gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", p.maxRetries+1),
			slog.String("error", err.Error()))

		if attempt >= p.maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				provider.ErrTransientFailure, p.maxRetries, err)
		}

		delay := backoffDelay(p.backoff, attempt)
		log.Debug("retrying gemini call", slog.Duration("delay", delay))
		if err := p.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %v", provider.ErrTransientFailure, err)
		}
	}
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", provider.ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", provider.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", fmt.Errorf("%w: content blocked by safety filters", provider.ErrContentBlocked)
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content in response", provider.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty text in response", provider.ErrInvalidResponse)
	}
	return b.String(), nil
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// backoffDelay is base * 2^attempt scaled by a jitter factor in [0.5, 1).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(backoff * jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
