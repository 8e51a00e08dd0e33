// Package replicate adapts Replicate's async prediction API to the
// council.Provider interface used by the deliberation engine.
package replicate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/praetorian-inc/council/internal/providers"
	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/ratelimit"
	"github.com/praetorian-inc/council/pkg/registry"
	"github.com/praetorian-inc/council/pkg/retry"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	providers.Registry.Register("replicate", New)
}

// envVarName is the environment variable Replicate's own tooling uses.
const envVarName = "REPLICATE_API_TOKEN"

// DefaultInitialBackoff is the initial backoff duration for rate-limit retries.
const DefaultInitialBackoff = 1 * time.Second

// Replicate wraps replicatego.Client as a council.Provider. Model is
// supplied per call as "owner/model-name" or "owner/model-name:version".
type Replicate struct {
	client     *replicatego.Client
	limiter    *ratelimit.Limiter
	maxRetries int
}

// Config is the typed construction configuration for a Replicate provider.
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

// Option is a functional option over Config, for callers that construct a
// Replicate provider directly rather than through the registry.
type Option = registry.Option[Config]

// WithAPIKey sets the Replicate API token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the API base URL, for testing/proxies.
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

// New builds a Replicate provider from registry configuration:
//   - api_key: required (or REPLICATE_API_TOKEN environment variable)
//   - base_url: optional, for testing/proxies
//   - rate_limit: optional, requests/second token bucket (0 disables limiting)
//   - max_retries: optional, retry attempts on rate-limit errors (default 3)
func New(cfg registry.Config) (council.Provider, error) {
	return registry.FromMap(newFromConfig, configFromMap)(cfg)
}

// NewWithOptions builds a Replicate provider from functional options, for
// callers that already have typed configuration rather than a
// registry.Config map.
func NewWithOptions(opts ...Option) (council.Provider, error) {
	return registry.NewWithOptions(DefaultConfig(), newFromConfig, opts...)
}

// configFromMap parses a registry.Config map into the typed Config,
// applying the same REPLICATE_API_TOKEN fallback New has always documented.
func configFromMap(cfg registry.Config) (Config, error) {
	apiKey, err := registry.GetAPIKeyWithEnv(cfg, envVarName, "replicate")
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
		return nil, fmt.Errorf("replicate generator requires 'api_key' configuration or %s environment variable", envVarName)
	}

	opts := []replicatego.ClientOption{replicatego.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to create client: %w", err)
	}

	r := &Replicate{
		client:     client,
		maxRetries: cfg.MaxRetries,
	}

	if cfg.RateLimit > 0 {
		r.limiter = ratelimit.NewLimiter(cfg.RateLimit, cfg.RateLimit)
	}

	return r, nil
}

// Generate implements council.Provider. Per the Provider contract, remote
// failures are captured into GenerationResult.Error rather than returned.
// Replicate predictions run async server-side; client.Run polls until the
// prediction completes.
func (r *Replicate) Generate(ctx context.Context, prompt, model string, sampling council.SamplingConfig) (council.GenerationResult, error) {
	input := replicatego.PredictionInput{
		"prompt": prompt,
	}
	if sampling.Temperature != 0 {
		input["temperature"] = sampling.Temperature
	}
	if sampling.TopP != 0 {
		input["top_p"] = sampling.TopP
	}
	if sampling.MaxTokens > 0 {
		input["max_new_tokens"] = sampling.MaxTokens
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return council.GenerationResult{ModelUsed: model, Error: err}, nil
		}
	}

	start := time.Now()
	var output replicatego.PredictionOutput
	retryErr := retry.Do(ctx, retry.Config{
		MaxAttempts:   r.maxRetries,
		InitialDelay:  DefaultInitialBackoff,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		RetryableFunc: isRateLimitError,
	}, func() error {
		var callErr error
		output, callErr = r.client.Run(ctx, model, input, nil)
		return callErr
	})
	latency := time.Since(start).Milliseconds()

	if retryErr != nil {
		return council.GenerationResult{ModelUsed: model, LatencyMs: latency, Error: wrapError(retryErr)}, nil
	}

	return council.GenerationResult{
		Content:   extractText(output),
		ModelUsed: model,
		LatencyMs: latency,
	}, nil
}

// extractText converts Replicate output to a string. Output can be a
// string, a []string (token-streamed models join into one string), or a
// []any of mixed element types.
func extractText(output replicatego.PredictionOutput) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		var parts []string
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", output)
	}
}

// isRateLimitError reports whether err is a Replicate 429 response, the
// same classification wrapError uses to label the wrapped error.
func isRateLimitError(err error) bool {
	apiErr, ok := err.(*replicatego.APIError)
	return ok && apiErr.Status == 429
}

func wrapError(err error) error {
	if apiErr, ok := err.(*replicatego.APIError); ok {
		return fmt.Errorf("replicate: API error (status %d): %w", apiErr.Status, err)
	}
	return fmt.Errorf("replicate: %w", err)
}
