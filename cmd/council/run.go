package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praetorian-inc/council/internal/providers"
	"github.com/praetorian-inc/council/pkg/cli"
	"github.com/praetorian-inc/council/pkg/config"
	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/logging"
	"github.com/praetorian-inc/council/pkg/registry"
	"github.com/praetorian-inc/council/pkg/results"
)

// execute loads configuration, wires the provider router and role
// registry, runs one deliberation, and writes the result.
func (r *RunCmd) execute() error {
	logging.Configure(logging.ParseLevel(r.logLevel()), "text", nil)

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	roleNames, err := r.selectRoleNames(cfg)
	if err != nil {
		return err
	}
	if len(roleNames) == 0 {
		return fmt.Errorf("no roles selected: config defines %d role(s), none matched", len(cfg.Roles))
	}

	roleRegistry, err := buildRoleRegistry(cfg, roleNames)
	if err != nil {
		return err
	}

	provider, err := buildRouter(cfg, roleNames)
	if err != nil {
		return err
	}

	councilCfg, err := councilConfigFrom(cfg, r.ProviderTimeout)
	if err != nil {
		return err
	}

	ctx, cancel := r.setupContext()
	defer cancel()

	engine := council.NewCouncil(roleRegistry, provider, councilCfg, slog.Default())

	output, err := engine.Deliberate(ctx, r.Task, nil)
	if err != nil {
		return fmt.Errorf("deliberation failed: %w", err)
	}

	return r.report(&output)
}

func (r *RunCmd) logLevel() string {
	if r.Verbose {
		return "debug"
	}
	return "info"
}

// loadConfig loads the YAML config file and returns the fully validated
// result. With no --profile, the koanf-backed path is used so that
// COUNCIL_-prefixed environment variables (e.g. COUNCIL_RUN__CHAIRMAN_MODEL)
// override file values; selecting a profile goes through the hierarchical
// loader instead, since profile application happens on the decoded struct.
func (r *RunCmd) loadConfig() (*config.Config, error) {
	if r.Profile == "" {
		cfg, err := config.LoadConfigKoanf(r.ConfigFile)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigWithProfile(r.ConfigFile, r.Profile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectRoleNames resolves which configured roles participate in this
// run, via explicit names, a glob pattern, or (the default) every role
// in the config.
func (r *RunCmd) selectRoleNames(cfg *config.Config) ([]string, error) {
	all := make([]string, 0, len(cfg.Roles))
	for name := range cfg.Roles {
		all = append(all, name)
	}

	switch {
	case len(r.Role) > 0:
		return r.Role, nil
	case r.RolesGlob != "":
		matches, err := cli.ParseCommaSeparatedGlobs(r.RolesGlob, all)
		if err != nil {
			return nil, fmt.Errorf("invalid --roles-glob: %w", err)
		}
		return matches, nil
	default:
		return all, nil
	}
}

// buildRoleRegistry converts the selected RoleConfig entries into a
// council.Registry, preserving each role's dependency edges.
func buildRoleRegistry(cfg *config.Config, roleNames []string) (*council.Registry, error) {
	reg := council.NewRegistry()

	for _, name := range roleNames {
		rc, ok := cfg.Roles[name]
		if !ok {
			return nil, fmt.Errorf("role %q not found in config", name)
		}

		role := council.NewRole(name, rc.Prompt, rc.Model)
		if rc.Weight > 0 {
			role = role.WithWeight(rc.Weight)
		}

		sampling := council.DefaultSamplingConfig()
		if rc.Temperature > 0 {
			sampling.Temperature = rc.Temperature
		}
		sampling.MaxTokens = rc.MaxTokens
		sampling.TopP = rc.TopP
		role = role.WithSampling(sampling)

		role.DependsOn = rc.DependsOn

		if err := reg.Add(role); err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
	}

	return reg, nil
}

// buildRouter instantiates one provider backend per distinct provider
// name referenced by the selected roles, and wraps them in a modelRouter
// that dispatches council.Provider.Generate calls by the model string
// each role carries. Roles with no provider configured fall back to the
// placeholder provider (spec's "placeholder mode").
func buildRouter(cfg *config.Config, roleNames []string) (council.Provider, error) {
	router := newModelRouter()
	built := make(map[string]council.Provider)
	sawRealProvider := false
	placeholder := council.NewPlaceholderProvider()

	for _, name := range roleNames {
		rc := cfg.Roles[name]

		if rc.Provider == "" {
			router.register(rc.Model, placeholder)
			continue
		}

		prov, ok := built[rc.Provider]
		if !ok {
			pc, exists := cfg.Providers[rc.Provider]
			if !exists {
				return nil, fmt.Errorf("role %q references unknown provider %q", name, rc.Provider)
			}

			var err error
			prov, err = instantiateProvider(pc)
			if err != nil {
				return nil, fmt.Errorf("provider %q: %w", rc.Provider, err)
			}
			built[rc.Provider] = prov
		}
		if pc, exists := cfg.Providers[rc.Provider]; exists && pc.Type != "placeholder" {
			sawRealProvider = true
		}

		router.register(rc.Model, prov)
	}

	// When every role resolves to the placeholder, hand Council the bare
	// PlaceholderProvider directly rather than the router: judging.go's
	// isPlaceholder fast path type-asserts on *PlaceholderProvider, and
	// that detection would otherwise be hidden behind the router.
	if !sawRealProvider {
		return placeholder, nil
	}

	return router, nil
}

// instantiateProvider creates one provider backend from a ProviderConfig,
// going through the internal/providers registry except for the
// standalone placeholder provider.
func instantiateProvider(pc config.ProviderConfig) (council.Provider, error) {
	if pc.Type == "placeholder" {
		return council.NewPlaceholderProvider(), nil
	}

	cfg := registry.Config{}
	if pc.APIKey != "" {
		cfg["api_key"] = pc.APIKey
	}
	if pc.Region != "" {
		cfg["region"] = pc.Region
	}
	if pc.BaseURL != "" {
		cfg["base_url"] = pc.BaseURL
	}
	if pc.RateLimit != 0 {
		cfg["rate_limit"] = pc.RateLimit
	}
	if pc.MaxRetries != 0 {
		cfg["max_retries"] = pc.MaxRetries
	}

	return providers.Registry.Create(pc.Type, cfg)
}

// councilConfigFrom translates the loaded RunConfig into a
// council.Config, applying the spec's documented defaults for anything
// left unset. cliProviderTimeout is used only when the config file
// leaves run.provider_timeout unset.
func councilConfigFrom(cfg *config.Config, cliProviderTimeout time.Duration) (council.Config, error) {
	councilCfg := council.DefaultConfig()
	councilCfg.EnablePeerReview = cfg.Run.EnablePeerReview
	councilCfg.Anonymize = cfg.Run.Anonymize
	councilCfg.ChairmanModel = cfg.Run.ChairmanModel
	councilCfg.JudgeConcurrency = cfg.Run.JudgeConcurrency
	if cliProviderTimeout > 0 {
		councilCfg.ProviderTimeoutSeconds = int(cliProviderTimeout.Seconds())
	}

	if cfg.Run.OutputMode != "" {
		mode, err := council.ParseOutputMode(cfg.Run.OutputMode)
		if err != nil {
			return council.Config{}, err
		}
		councilCfg.OutputMode = mode
	}

	if cfg.Run.AggregationMethod != "" {
		method, err := council.ParseAggregationMethod(cfg.Run.AggregationMethod)
		if err != nil {
			return council.Config{}, err
		}
		councilCfg.AggregationMethod = method
	}

	if cfg.Run.ProviderTimeout != "" {
		d, err := time.ParseDuration(cfg.Run.ProviderTimeout)
		if err != nil {
			return council.Config{}, fmt.Errorf("invalid run.provider_timeout: %w", err)
		}
		councilCfg.ProviderTimeoutSeconds = int(d.Seconds())
	}

	return councilCfg, nil
}

// setupContext creates context with timeout and signal handling. The
// returned cancel func must be called to avoid leaking timers.
func (r *RunCmd) setupContext() (context.Context, context.CancelFunc) {
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(baseCtx, r.Timeout)
	return ctx, func() {
		stop()
		cancel()
	}
}

// report writes the deliberation output to stdout and, if --output was
// given, to a file in the requested format.
func (r *RunCmd) report(output *council.DeliberationOutput) error {
	printSummary(output, r.Verbose)

	if r.Output == "" {
		return nil
	}

	var err error
	switch r.Format {
	case "jsonl":
		err = results.WriteJSONL(r.Output, output)
	default:
		err = results.WriteJSON(r.Output, output)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s output: %w", r.Format, err)
	}

	fmt.Fprintf(os.Stderr, "\n%s output written to: %s\n", r.Format, r.Output)
	return nil
}
