// Package providers holds the registry of provider backend factories,
// keyed by provider type ("openai", "bedrock", "replicate"). The
// placeholder provider is not registered here; cmd/council builds it
// directly. Concrete adapters self-register via init(), so wiring a backend into
// cmd/council is a blank import, not a switch statement edit.
package providers

import (
	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/registry"
)

// Registry holds provider factories, indexed by provider type string.
var Registry = registry.New[council.Provider]("providers")
