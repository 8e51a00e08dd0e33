// Package council implements the deliberation engine: parallel role
// execution, anonymized pairwise peer review, three score aggregators,
// and optional chairman synthesis.
package council

import "fmt"

// SamplingConfig holds per-role generation parameters. Zero values other
// than Temperature are treated as "unset" and left to the Provider's own
// defaults.
type SamplingConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxTokens        int            `json:"max_tokens,omitempty"`
	TopP             float64        `json:"top_p,omitempty"`
	PresencePenalty  float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64        `json:"frequency_penalty,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// DefaultSamplingConfig returns the spec's default sampling parameters.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{Temperature: 0.7}
}

// Validate checks the sampling bounds from spec.md §3.
func (s SamplingConfig) Validate() error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of range [0,2]", ErrConfiguration, s.Temperature)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must be positive if set", ErrConfiguration)
	}
	if s.TopP != 0 && (s.TopP < 0 || s.TopP > 1) {
		return fmt.Errorf("%w: top_p %v out of range [0,1]", ErrConfiguration, s.TopP)
	}
	if s.PresencePenalty < -2 || s.PresencePenalty > 2 {
		return fmt.Errorf("%w: presence_penalty %v out of range [-2,2]", ErrConfiguration, s.PresencePenalty)
	}
	if s.FrequencyPenalty < -2 || s.FrequencyPenalty > 2 {
		return fmt.Errorf("%w: frequency_penalty %v out of range [-2,2]", ErrConfiguration, s.FrequencyPenalty)
	}
	return nil
}

// Role is a named deliberation participant: a system prompt, a target
// model, sampling parameters, an aggregation weight, and the names of
// roles whose output must be prepended to this role's prompt before
// dispatch.
type Role struct {
	Name      string
	Prompt    string
	Model     string
	Weight    float64
	Sampling  SamplingConfig
	DependsOn []string
}

// NewRole builds a Role with the spec's defaults (weight 1.0, sampling
// temperature 0.7).
func NewRole(name, prompt, model string) Role {
	return Role{
		Name:     name,
		Prompt:   prompt,
		Model:    model,
		Weight:   1.0,
		Sampling: DefaultSamplingConfig(),
	}
}

// WithWeight returns a copy of r with its aggregation weight set.
func (r Role) WithWeight(w float64) Role {
	r.Weight = w
	return r
}

// WithSampling returns a copy of r with its sampling config set.
func (r Role) WithSampling(s SamplingConfig) Role {
	r.Sampling = s
	return r
}

// DependsOnRoles returns a copy of r with its dependency list set.
func (r Role) DependsOnRoles(names ...string) Role {
	r.DependsOn = names
	return r
}

// Validate checks the invariants spec.md §3 places on a single Role,
// independent of registry membership (uniqueness) or DAG shape (cycles),
// both of which are checked by the Registry and the orchestrator
// respectively.
func (r Role) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: role name must not be empty", ErrConfiguration)
	}
	if r.Weight <= 0 {
		return fmt.Errorf("%w: role %q weight must be > 0, got %v", ErrConfiguration, r.Name, r.Weight)
	}
	if err := r.Sampling.Validate(); err != nil {
		return fmt.Errorf("role %q: %w", r.Name, err)
	}
	return nil
}

// Registry is an ordered, unique-by-name collection of Roles. Insertion
// order is iteration order.
type Registry struct {
	order []string
	byName map[string]Role
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Role)}
}

// Add appends role to the registry. Fails if a role with the same name
// already exists or if the role itself fails validation.
func (reg *Registry) Add(role Role) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if _, exists := reg.byName[role.Name]; exists {
		return fmt.Errorf("%w: role %q already registered", ErrConfiguration, role.Name)
	}
	reg.order = append(reg.order, role.Name)
	reg.byName[role.Name] = role
	return nil
}

// Get returns the role with the given name.
func (reg *Registry) Get(name string) (Role, bool) {
	r, ok := reg.byName[name]
	return r, ok
}

// Has reports whether a role with the given name is registered.
func (reg *Registry) Has(name string) bool {
	_, ok := reg.byName[name]
	return ok
}

// Remove deletes the role with the given name, if present.
func (reg *Registry) Remove(name string) {
	if _, ok := reg.byName[name]; !ok {
		return
	}
	delete(reg.byName, name)
	for i, n := range reg.order {
		if n == name {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered roles.
func (reg *Registry) Len() int {
	return len(reg.order)
}

// Roles returns the registered roles in insertion order.
func (reg *Registry) Roles() []Role {
	out := make([]Role, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.byName[name])
	}
	return out
}

// Names returns the registered role names in insertion order.
func (reg *Registry) Names() []string {
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}
