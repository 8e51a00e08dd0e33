// Package bedrock adapts AWS Bedrock's InvokeModel API, for the
// Anthropic Claude model family, to the council.Provider interface.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/praetorian-inc/council/internal/providers"
	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/ratelimit"
	"github.com/praetorian-inc/council/pkg/registry"
	"github.com/praetorian-inc/council/pkg/retry"
)

func init() {
	providers.Registry.Register("bedrock", New)
}

// DefaultInitialBackoff is the initial backoff duration for rate-limit retries.
const DefaultInitialBackoff = 1 * time.Second

// Bedrock wraps bedrockruntime.Client as a council.Provider. Only the
// Anthropic Claude model family is supported: it is the family actually
// used for deliberation roles, and the request/response envelope differs
// enough between Titan, Llama, and Claude that supporting all three would
// triple the adapter surface for no exercised benefit.
type Bedrock struct {
	client     *bedrockruntime.Client
	limiter    *ratelimit.Limiter
	maxRetries int
}

// Config is the typed construction configuration for a Bedrock provider.
type Config struct {
	Region     string
	Endpoint   string
	RateLimit  float64
	MaxRetries int
}

// DefaultConfig returns the typed Config New uses when a field is left
// unset, matching the defaults previously hardcoded in New's body.
func DefaultConfig() Config {
	return Config{MaxRetries: 3}
}

// Option is a functional option over Config, for callers that construct a
// Bedrock provider directly rather than through the registry.
type Option = registry.Option[Config]

// WithRegion sets the AWS region (e.g. "us-east-1").
func WithRegion(region string) Option {
	return func(c *Config) { c.Region = region }
}

// WithEndpoint overrides the Bedrock endpoint, for testing or custom VPC
// endpoints.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithRateLimit sets the requests/second token bucket rate (0 disables
// limiting).
func WithRateLimit(rate float64) Option {
	return func(c *Config) { c.RateLimit = rate }
}

// WithMaxRetries sets the retry attempts on throttling errors.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// New builds a Bedrock provider from registry configuration:
//   - region: required, AWS region (e.g. "us-east-1")
//   - endpoint: optional, custom Bedrock endpoint (for testing)
//   - rate_limit: optional, requests/second token bucket (0 disables limiting)
//   - max_retries: optional, retry attempts on throttling errors (default 3)
func New(cfg registry.Config) (council.Provider, error) {
	return registry.FromMap(newFromConfig, configFromMap)(cfg)
}

// NewWithOptions builds a Bedrock provider from functional options, for
// callers that already have typed configuration rather than a
// registry.Config map.
func NewWithOptions(opts ...Option) (council.Provider, error) {
	return registry.NewWithOptions(DefaultConfig(), newFromConfig, opts...)
}

// configFromMap parses a registry.Config map into the typed Config.
func configFromMap(cfg registry.Config) (Config, error) {
	region, err := registry.RequireString(cfg, "region")
	if err != nil {
		return Config{}, fmt.Errorf("bedrock provider: %w", err)
	}

	c := DefaultConfig()
	c.Region = region
	c.Endpoint = registry.GetString(cfg, "endpoint", "")
	c.RateLimit = registry.GetFloat64(cfg, "rate_limit", 0)
	c.MaxRetries = registry.GetInt(cfg, "max_retries", c.MaxRetries)
	return c, nil
}

// newFromConfig is the typed factory: the actual client/provider
// construction, shared by New (via FromMap) and NewWithOptions.
func newFromConfig(cfg Config) (council.Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock provider: required config key \"region\" missing or empty")
	}

	ctx := context.Background()
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = awssdk.String(cfg.Endpoint)
		})
	}

	b := &Bedrock{
		client:     bedrockruntime.NewFromConfig(awsCfg, clientOpts...),
		maxRetries: cfg.MaxRetries,
	}

	if cfg.RateLimit > 0 {
		b.limiter = ratelimit.NewLimiter(cfg.RateLimit, cfg.RateLimit)
	}

	return b, nil
}

// Generate implements council.Provider. Per the Provider contract, remote
// failures are captured into GenerationResult.Error rather than returned.
func (b *Bedrock) Generate(ctx context.Context, prompt, model string, sampling council.SamplingConfig) (council.GenerationResult, error) {
	if !strings.HasPrefix(model, "anthropic.claude") {
		return council.GenerationResult{
			ModelUsed: model,
			Error:     fmt.Errorf("bedrock: unsupported model family: %s (only anthropic.claude* is wired)", model),
		}, nil
	}

	body, err := buildClaudeRequest(prompt, sampling)
	if err != nil {
		return council.GenerationResult{ModelUsed: model, Error: fmt.Errorf("bedrock: failed to build request: %w", err)}, nil
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return council.GenerationResult{ModelUsed: model, Error: err}, nil
		}
	}

	start := time.Now()
	var output *bedrockruntime.InvokeModelOutput
	retryErr := retry.Do(ctx, retry.Config{
		MaxAttempts:   b.maxRetries,
		InitialDelay:  DefaultInitialBackoff,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		RetryableFunc: isThrottlingError,
	}, func() error {
		var callErr error
		output, callErr = b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     awssdk.String(model),
			Body:        body,
			ContentType: awssdk.String("application/json"),
			Accept:      awssdk.String("application/json"),
		})
		return callErr
	})
	latency := time.Since(start).Milliseconds()

	if retryErr != nil {
		return council.GenerationResult{ModelUsed: model, LatencyMs: latency, Error: handleError(retryErr)}, nil
	}

	text, tokens, err := parseClaudeResponse(output.Body)
	if err != nil {
		return council.GenerationResult{ModelUsed: model, LatencyMs: latency, Error: fmt.Errorf("bedrock: failed to parse response: %w", err)}, nil
	}

	return council.GenerationResult{
		Content:    text,
		ModelUsed:  model,
		TokensUsed: tokens,
		LatencyMs:  latency,
	}, nil
}

func buildClaudeRequest(prompt string, sampling council.SamplingConfig) ([]byte, error) {
	maxTokens := sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": sampling.Temperature,
	}
	if sampling.TopP > 0 {
		req["top_p"] = sampling.TopP
	}

	return json.Marshal(req)
}

func parseClaudeResponse(body []byte) (string, int, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", 0, err
	}

	var text string
	for _, content := range resp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	return text, resp.Usage.InputTokens + resp.Usage.OutputTokens, nil
}

// isThrottlingError reports whether err is a Bedrock throttling condition,
// the same classification handleError uses to label the wrapped error.
func isThrottlingError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "ThrottlingException") || strings.Contains(errStr, "TooManyRequestsException")
}

func handleError(err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "ThrottlingException"), strings.Contains(errStr, "TooManyRequestsException"):
		return fmt.Errorf("bedrock: rate limit exceeded: %w", err)
	case strings.Contains(errStr, "AccessDeniedException"), strings.Contains(errStr, "UnauthorizedException"):
		return fmt.Errorf("bedrock: authentication error: %w", err)
	case strings.Contains(errStr, "ValidationException"):
		return fmt.Errorf("bedrock: invalid request: %w", err)
	case strings.Contains(errStr, "ServiceUnavailableException"), strings.Contains(errStr, "InternalServerException"):
		return fmt.Errorf("bedrock: service error: %w", err)
	default:
		return fmt.Errorf("bedrock: API error: %w", err)
	}
}
