package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/devskyy/runway/types"
)

// CapabilityFunc is a named, asynchronously-invokable operation exposed by
// a registered agent. Parameters arrive as a flat map of named arguments;
// the result value is opaque to the engine.
type CapabilityFunc func(ctx context.Context, params map[string]any) (any, error)

// Agent is the sole contract the engine requires of an external
// collaborator: an addressable set of capabilities callable by name.
type Agent interface {
	Capabilities() map[string]CapabilityFunc
}

// CapabilityMap is a convenience Agent implementation for ad hoc agents.
type CapabilityMap map[string]CapabilityFunc

// Capabilities implements Agent.
func (m CapabilityMap) Capabilities() map[string]CapabilityFunc { return m }

// agentRegistry maps agent types to registered agent instances. It is
// read-mostly after setup; registration during execution is not supported.
type agentRegistry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func newAgentRegistry() *agentRegistry {
	return &agentRegistry{agents: make(map[string]Agent)}
}

func (r *agentRegistry) register(agentType string, agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentType] = agent
}

// resolve looks up a capability by (agentType, method). A missing agent or
// capability is a normal task-level failure, not a startup error.
func (r *agentRegistry) resolve(agentType, method string) (CapabilityFunc, error) {
	r.mu.RLock()
	agent, ok := r.agents[agentType]
	r.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrAgentNotFound, "agent not found: %s", agentType)
	}
	fn, ok := agent.Capabilities()[method]
	if !ok {
		return nil, types.Errorf(types.ErrCapabilityNotFound,
			"method %s not found on agent %s", method, agentType)
	}
	return fn, nil
}

func (r *agentRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
