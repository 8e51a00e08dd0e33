// Package config loads and validates the configuration for a council
// deliberation run: roles, providers, and output settings, merged from
// layered YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete council configuration.
type Config struct {
	Run       RunConfig                 `yaml:"run" koanf:"run"`
	Roles     map[string]RoleConfig     `yaml:"roles" koanf:"roles"`
	Providers map[string]ProviderConfig `yaml:"providers" koanf:"providers"`
	Output    OutputConfig              `yaml:"output" koanf:"output"`
	Profiles  map[string]Profile        `yaml:"profiles,omitempty" koanf:"profiles"`
}

// Profile represents a named configuration profile that can be applied
// on top of the base Config.
type Profile struct {
	Run       RunConfig                 `yaml:"run,omitempty"`
	Roles     map[string]RoleConfig     `yaml:"roles,omitempty"`
	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
	Output    OutputConfig              `yaml:"output,omitempty"`
}

// RunConfig contains the top-level deliberation settings, decoded into
// council.Config by the caller after loading.
type RunConfig struct {
	Task              string `yaml:"task" koanf:"task"`
	OutputMode        string `yaml:"output_mode" koanf:"output_mode" validate:"omitempty,oneof=synthesis perspectives both"`
	AggregationMethod string `yaml:"aggregation_method" koanf:"aggregation_method" validate:"omitempty,oneof=borda bradley_terry elo"`
	EnablePeerReview  bool   `yaml:"enable_peer_review" koanf:"enable_peer_review"`
	Anonymize         bool   `yaml:"anonymize" koanf:"anonymize"`
	ChairmanModel     string `yaml:"chairman_model,omitempty" koanf:"chairman_model"`
	JudgeConcurrency  int    `yaml:"judge_concurrency,omitempty" koanf:"judge_concurrency" validate:"gte=0"`
	ProviderTimeout   string `yaml:"provider_timeout,omitempty" koanf:"provider_timeout"`
}

// RoleConfig describes one deliberation participant.
type RoleConfig struct {
	Prompt      string   `yaml:"prompt" koanf:"prompt"`
	Provider    string   `yaml:"provider" koanf:"provider"`
	Model       string   `yaml:"model" koanf:"model"`
	Weight      float64  `yaml:"weight,omitempty" koanf:"weight" validate:"omitempty,gt=0"`
	Temperature float64  `yaml:"temperature,omitempty" koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" koanf:"max_tokens" validate:"gte=0"`
	TopP        float64  `yaml:"top_p,omitempty" koanf:"top_p" validate:"gte=0,lte=1"`
	DependsOn   []string `yaml:"depends_on,omitempty" koanf:"depends_on"`
}

// ProviderConfig contains provider backend configuration: which adapter
// to instantiate (openai, bedrock, replicate) and its connection
// parameters.
type ProviderConfig struct {
	Type       string  `yaml:"type" koanf:"type" validate:"omitempty,oneof=openai bedrock replicate placeholder"`
	APIKey     string  `yaml:"api_key,omitempty" koanf:"api_key"`
	Region     string  `yaml:"region,omitempty" koanf:"region"`
	BaseURL    string  `yaml:"base_url,omitempty" koanf:"base_url"`
	RateLimit  float64 `yaml:"rate_limit,omitempty" koanf:"rate_limit" validate:"gte=0"`
	MaxRetries int     `yaml:"max_retries,omitempty" koanf:"max_retries" validate:"gte=0"`
}

// OutputConfig contains the on-disk result settings.
type OutputConfig struct {
	Format string `yaml:"format" koanf:"format" validate:"omitempty,oneof=json jsonl"`
	Path   string `yaml:"path" koanf:"path"`
}

// Validate validates the configuration and returns a helpful error
// message describing the first invariant violated.
func (c *Config) Validate() error {
	switch c.Run.OutputMode {
	case "", "synthesis", "perspectives", "both":
	default:
		return fmt.Errorf("run.output_mode must be one of synthesis|perspectives|both, got: %s", c.Run.OutputMode)
	}

	switch c.Run.AggregationMethod {
	case "", "borda", "bradley_terry", "elo":
	default:
		return fmt.Errorf("run.aggregation_method must be one of borda|bradley_terry|elo, got: %s", c.Run.AggregationMethod)
	}

	if c.Run.JudgeConcurrency < 0 {
		return fmt.Errorf("run.judge_concurrency must be non-negative, got: %d", c.Run.JudgeConcurrency)
	}

	if c.Run.ProviderTimeout != "" {
		if _, err := time.ParseDuration(c.Run.ProviderTimeout); err != nil {
			return fmt.Errorf("invalid run.provider_timeout: %w", err)
		}
	}

	for name, role := range c.Roles {
		if role.Temperature < 0 || role.Temperature > 2 {
			return fmt.Errorf("validation failed: roles.%s.temperature must be between 0 and 2, got: %f", name, role.Temperature)
		}
		if role.Weight < 0 {
			return fmt.Errorf("validation failed: roles.%s.weight must be > 0, got: %f", name, role.Weight)
		}
		if role.Provider != "" {
			if _, ok := c.Providers[role.Provider]; !ok {
				return fmt.Errorf("roles.%s references unknown provider %q", name, role.Provider)
			}
		}
		for _, dep := range role.DependsOn {
			if _, ok := c.Roles[dep]; !ok {
				return fmt.Errorf("roles.%s depends_on unknown role %q", name, dep)
			}
		}
	}

	validFormats := map[string]bool{"json": true, "jsonl": true}
	if c.Output.Format != "" && !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s (valid: json, jsonl)", c.Output.Format)
	}

	return nil
}

// Merge merges another config into this one, with the other config
// taking precedence field by field.
func (c *Config) Merge(other *Config) {
	if other.Run.Task != "" {
		c.Run.Task = other.Run.Task
	}
	if other.Run.OutputMode != "" {
		c.Run.OutputMode = other.Run.OutputMode
	}
	if other.Run.AggregationMethod != "" {
		c.Run.AggregationMethod = other.Run.AggregationMethod
	}
	if other.Run.EnablePeerReview {
		c.Run.EnablePeerReview = other.Run.EnablePeerReview
	}
	if other.Run.Anonymize {
		c.Run.Anonymize = other.Run.Anonymize
	}
	if other.Run.ChairmanModel != "" {
		c.Run.ChairmanModel = other.Run.ChairmanModel
	}
	if other.Run.JudgeConcurrency != 0 {
		c.Run.JudgeConcurrency = other.Run.JudgeConcurrency
	}
	if other.Run.ProviderTimeout != "" {
		c.Run.ProviderTimeout = other.Run.ProviderTimeout
	}

	if c.Roles == nil {
		c.Roles = make(map[string]RoleConfig)
	}
	for name, role := range other.Roles {
		existing := c.Roles[name]
		if role.Prompt != "" {
			existing.Prompt = role.Prompt
		}
		if role.Provider != "" {
			existing.Provider = role.Provider
		}
		if role.Model != "" {
			existing.Model = role.Model
		}
		if role.Weight != 0 {
			existing.Weight = role.Weight
		}
		if role.Temperature != 0 {
			existing.Temperature = role.Temperature
		}
		if role.MaxTokens != 0 {
			existing.MaxTokens = role.MaxTokens
		}
		if role.TopP != 0 {
			existing.TopP = role.TopP
		}
		if len(role.DependsOn) > 0 {
			existing.DependsOn = role.DependsOn
		}
		c.Roles[name] = existing
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	for name, prov := range other.Providers {
		existing := c.Providers[name]
		if prov.Type != "" {
			existing.Type = prov.Type
		}
		if prov.APIKey != "" {
			existing.APIKey = prov.APIKey
		}
		if prov.Region != "" {
			existing.Region = prov.Region
		}
		if prov.BaseURL != "" {
			existing.BaseURL = prov.BaseURL
		}
		if prov.RateLimit != 0 {
			existing.RateLimit = prov.RateLimit
		}
		if prov.MaxRetries != 0 {
			existing.MaxRetries = prov.MaxRetries
		}
		c.Providers[name] = existing
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Path != "" {
		c.Output.Path = other.Output.Path
	}
}

// ApplyProfile applies a named profile to this config.
func (c *Config) ApplyProfile(profileName string) error {
	profile, exists := c.Profiles[profileName]
	if !exists {
		return fmt.Errorf("profile %q not found", profileName)
	}

	profileConfig := &Config{
		Run:       profile.Run,
		Roles:     profile.Roles,
		Providers: profile.Providers,
		Output:    profile.Output,
	}

	c.Merge(profileConfig)
	return nil
}

// interpolateEnvVars replaces ${VAR} with environment variable values
func interpolateEnvVars(s string, getenv func(string) (string, bool)) (string, error) {
	result := s
	start := 0
	for {
		// Find ${
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		// Find }
		endIdx := strings.Index(result[idx:], "}")
		if endIdx == -1 {
			return "", fmt.Errorf("unclosed environment variable reference at position %d", idx)
		}
		endIdx += idx

		// Extract variable name
		varName := result[idx+2 : endIdx]
		value, ok := getenv(varName)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", varName)
		}

		// Replace ${VAR} with value
		result = result[:idx] + value + result[endIdx+1:]
		start = idx + len(value)
	}
	return result, nil
}
