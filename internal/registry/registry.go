// Package registry holds the static capability descriptors of the built-in
// agents. It is a pure lookup table; profiles are replaced wholesale, never
// mutated.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no agent is registered under an id.
var ErrNotFound = errors.New("agent not found")

// ParamType constrains capability parameter types.
type ParamType string

// Parameter types.
const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamEnum    ParamType = "enum"
)

// Parameter describes one typed input of a capability.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
}

// Capability is one operation an agent can perform.
type Capability struct {
	Intent      string      `json:"intent"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// AgentProfile is the immutable descriptor of a registered agent.
type AgentProfile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Role         string       `json:"role"`
	Description  string       `json:"description"`
	Capabilities []Capability `json:"capabilities"`
}

// Capability returns the capability descriptor for an intent name.
func (p AgentProfile) Capability(intent string) (Capability, bool) {
	for _, c := range p.Capabilities {
		if c.Intent == intent {
			return c, true
		}
	}
	return Capability{}, false
}

// Registry maps agent ids to profiles.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]AgentProfile
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]AgentProfile)}
}

// Register adds or overwrites a profile by id.
func (r *Registry) Register(profile AgentProfile) {
	r.mu.Lock()
	r.agents[profile.ID] = profile
	r.mu.Unlock()
	log.Debug().Str("agent", profile.Name).Msg("registry: registered")
}

// Get returns the profile for id or ErrNotFound.
func (r *Registry) Get(id string) (AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.agents[id]
	if !ok {
		return AgentProfile{}, ErrNotFound
	}
	return profile, nil
}

// List returns all profiles ordered by id.
func (r *Registry) List() []AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentProfile, 0, len(r.agents))
	for _, p := range r.agents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
