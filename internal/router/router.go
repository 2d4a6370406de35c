// Package router decides which upstream API flavor a model name should be
// sent to.
package router

import "strings"

// Flavor is an upstream API surface.
type Flavor string

const (
	FlavorChat      Flavor = "chat"
	FlavorResponses Flavor = "responses"
)

// Endpoint returns the upstream path for the flavor.
func (f Flavor) Endpoint() string {
	if f == FlavorResponses {
		return "/responses"
	}
	return "/chat/completions"
}

// Other returns the opposite flavor, used for wrong-flavor retries.
func (f Flavor) Other() Flavor {
	if f == FlavorResponses {
		return FlavorChat
	}
	return FlavorResponses
}

// responsesPrefixes lists model-name prefixes that only the Responses API
// serves.
var responsesPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

// Router classifies model names into flavors. Overrides win over the
// built-in rules; ForceResponses wins over everything.
type Router struct {
	overrides      map[string]Flavor
	forceResponses bool
}

// New builds a Router. Override keys are matched case-insensitively against
// the lowercased model name.
func New(overrides map[string]Flavor, forceResponses bool) *Router {
	normalized := make(map[string]Flavor, len(overrides))
	for model, flavor := range overrides {
		normalized[strings.ToLower(model)] = flavor
	}
	return &Router{overrides: normalized, forceResponses: forceResponses}
}

// Classify returns the flavor to use for the given model name.
func (r *Router) Classify(model string) Flavor {
	name := strings.ToLower(strings.TrimSpace(model))
	if flavor, ok := r.overrides[name]; ok {
		return flavor
	}
	if r.forceResponses {
		return FlavorResponses
	}
	for _, prefix := range responsesPrefixes {
		if strings.HasPrefix(name, prefix) {
			return FlavorResponses
		}
	}
	if strings.Contains(name, "codex") {
		return FlavorResponses
	}
	return FlavorChat
}
