// Package openai adapts the OpenAI chat completions API to the
// council.Provider interface used by the deliberation engine.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praetorian-inc/council/internal/providers"
	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/ratelimit"
	"github.com/praetorian-inc/council/pkg/registry"
	"github.com/praetorian-inc/council/pkg/retry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	providers.Registry.Register("openai", New)
}

// DefaultInitialBackoff is the initial backoff duration for rate-limit retries.
const DefaultInitialBackoff = 1 * time.Second

// OpenAI wraps goopenai.Client as a council.Provider. The model to use is
// supplied per call (by the role's configuration), not fixed at construction,
// since one provider instance backs every role that names "openai".
type OpenAI struct {
	client     *goopenai.Client
	limiter    *ratelimit.Limiter
	maxRetries int
}

// Config is the typed construction configuration for an OpenAI provider.
type Config struct {
	APIKey     string
	BaseURL    string
	RateLimit  float64
	MaxRetries int
}

// DefaultConfig returns the typed Config New uses when a field is left
// unset, matching the defaults previously hardcoded in New's body.
func DefaultConfig() Config {
	return Config{MaxRetries: 3}
}

// Option is a functional option over Config, for callers that construct an
// OpenAI provider directly rather than through the registry.
type Option = registry.Option[Config]

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the API base URL, for Azure-style or self-hosted
// compatible endpoints.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithRateLimit sets the requests/second token bucket rate (0 disables
// limiting).
func WithRateLimit(rate float64) Option {
	return func(c *Config) { c.RateLimit = rate }
}

// WithMaxRetries sets the retry attempts on rate-limit errors.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// New builds an OpenAI provider from registry configuration:
//   - api_key: required (or OPENAI_API_KEY environment variable)
//   - base_url: optional, for Azure-style or self-hosted compatible endpoints
//   - rate_limit: optional, requests/second token bucket (0 disables limiting)
//   - max_retries: optional, retry attempts on rate-limit errors (default 3)
func New(cfg registry.Config) (council.Provider, error) {
	return registry.FromMap(newFromConfig, configFromMap)(cfg)
}

// NewWithOptions builds an OpenAI provider from functional options, for
// callers that already have typed configuration rather than a
// registry.Config map.
func NewWithOptions(opts ...Option) (council.Provider, error) {
	return registry.NewWithOptions(DefaultConfig(), newFromConfig, opts...)
}

// configFromMap parses a registry.Config map into the typed Config,
// applying the same defaults and OPENAI_API_KEY fallback New has always
// documented.
func configFromMap(cfg registry.Config) (Config, error) {
	apiKey, err := registry.GetAPIKeyWithEnv(cfg, "OPENAI_API_KEY", "openai")
	if err != nil {
		return Config{}, err
	}

	c := DefaultConfig()
	c.APIKey = apiKey
	c.BaseURL = registry.GetString(cfg, "base_url", "")
	c.RateLimit = registry.GetFloat64(cfg, "rate_limit", 0)
	c.MaxRetries = registry.GetInt(cfg, "max_retries", c.MaxRetries)
	return c, nil
}

// newFromConfig is the typed factory: the actual client/provider
// construction, shared by New (via FromMap) and NewWithOptions.
func newFromConfig(cfg Config) (council.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires 'api_key' configuration or OPENAI_API_KEY environment variable")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	o := &OpenAI{
		client:     goopenai.NewClientWithConfig(clientCfg),
		maxRetries: cfg.MaxRetries,
	}

	if cfg.RateLimit > 0 {
		o.limiter = ratelimit.NewLimiter(cfg.RateLimit, cfg.RateLimit)
	}

	return o, nil
}

// Generate implements council.Provider. Per the Provider contract, remote
// failures are captured into GenerationResult.Error rather than returned.
func (o *OpenAI) Generate(ctx context.Context, prompt, model string, sampling council.SamplingConfig) (council.GenerationResult, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return council.GenerationResult{ModelUsed: model, Error: err}, nil
		}
	}

	req := goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if sampling.Temperature != 0 {
		req.Temperature = float32(sampling.Temperature)
	}
	if sampling.MaxTokens > 0 {
		req.MaxTokens = sampling.MaxTokens
	}
	if sampling.TopP != 0 {
		req.TopP = float32(sampling.TopP)
	}
	if sampling.PresencePenalty != 0 {
		req.PresencePenalty = float32(sampling.PresencePenalty)
	}
	if sampling.FrequencyPenalty != 0 {
		req.FrequencyPenalty = float32(sampling.FrequencyPenalty)
	}

	start := time.Now()
	var resp goopenai.ChatCompletionResponse
	retryErr := retry.Do(ctx, retry.Config{
		MaxAttempts:  o.maxRetries,
		InitialDelay: DefaultInitialBackoff,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		RetryableFunc: func(err error) bool {
			return isRateLimitError(err)
		},
	}, func() error {
		var callErr error
		resp, callErr = o.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	latency := time.Since(start).Milliseconds()

	if retryErr != nil {
		return council.GenerationResult{
			ModelUsed: model,
			LatencyMs: latency,
			Error:     wrapError(retryErr),
		}, nil
	}
	if len(resp.Choices) == 0 {
		return council.GenerationResult{
			ModelUsed: model,
			LatencyMs: latency,
			Error:     fmt.Errorf("openai: no choices in response"),
		}, nil
	}

	return council.GenerationResult{
		Content:    resp.Choices[0].Message.Content,
		ModelUsed:  model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  latency,
	}, nil
}

func isRateLimitError(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return fmt.Errorf("openai: rate limit exceeded: %w", err)
		case 400:
			return fmt.Errorf("openai: bad request: %w", err)
		case 401:
			return fmt.Errorf("openai: authentication error: %w", err)
		case 500, 502, 503, 504:
			return fmt.Errorf("openai: server error: %w", err)
		default:
			return fmt.Errorf("openai: API error: %w", err)
		}
	}
	return fmt.Errorf("openai: %w", err)
}
