package agents

import (
	"sort"
	"sync"
)

// Registry holds every registered provider agent and exposes
// capability-filtered, priority-ordered views. Registration happens once
// at startup; the registry itself performs no network or rate-limit work.
type Registry struct {
	mu     sync.RWMutex
	agents []Agent
}

// NewRegistry creates an empty agent registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an agent. Agents are never removed for the process
// lifetime; enablement is re-evaluated via Enabled() on every lookup.
func (r *Registry) Register(agent Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = append(r.agents, agent)
}

// AllAgents returns every registered agent, enabled or not, sorted by
// priority then name
func (r *Registry) AllAgents() []Agent {
	r.mu.RLock()
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	r.mu.RUnlock()

	sortAgents(out)
	return out
}

// enabledAgents returns enabled agents sorted ascending by priority
func (r *Registry) enabledAgents() []Agent {
	r.mu.RLock()
	out := make([]Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		if agent.Enabled() {
			out = append(out, agent)
		}
	}
	r.mu.RUnlock()

	sortAgents(out)
	return out
}

// BioAgents returns enabled bio retrievers in priority order
func (r *Registry) BioAgents() []BioAgent {
	var out []BioAgent
	for _, agent := range r.enabledAgents() {
		if capable, ok := agent.(BioAgent); ok {
			out = append(out, capable)
		}
	}
	return out
}

// ArtistImageAgents returns enabled artist-image retrievers in priority order
func (r *Registry) ArtistImageAgents() []ArtistImageAgent {
	var out []ArtistImageAgent
	for _, agent := range r.enabledAgents() {
		if capable, ok := agent.(ArtistImageAgent); ok {
			out = append(out, capable)
		}
	}
	return out
}

// AlbumCoverAgents returns enabled album-cover retrievers in priority order
func (r *Registry) AlbumCoverAgents() []AlbumCoverAgent {
	var out []AlbumCoverAgent
	for _, agent := range r.enabledAgents() {
		if capable, ok := agent.(AlbumCoverAgent); ok {
			out = append(out, capable)
		}
	}
	return out
}

// MBIDResolvers returns enabled MBID resolvers in priority order
func (r *Registry) MBIDResolvers() []MBIDResolver {
	var out []MBIDResolver
	for _, agent := range r.enabledAgents() {
		if capable, ok := agent.(MBIDResolver); ok {
			out = append(out, capable)
		}
	}
	return out
}

// ReloadSettings re-reads settings on every agent and returns the names of
// agents that flipped from disabled to enabled, so callers can reopen the
// enrichment backlog that accumulated while those agents were dark.
func (r *Registry) ReloadSettings() []string {
	r.mu.RLock()
	agents := make([]Agent, len(r.agents))
	copy(agents, r.agents)
	r.mu.RUnlock()

	var newlyEnabled []string
	for _, agent := range agents {
		wasEnabled := agent.Enabled()
		agent.ReloadSettings()
		if !wasEnabled && agent.Enabled() {
			newlyEnabled = append(newlyEnabled, agent.Name())
		}
	}
	return newlyEnabled
}

func sortAgents(agents []Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Priority() != agents[j].Priority() {
			return agents[i].Priority() < agents[j].Priority()
		}
		return agents[i].Name() < agents[j].Name()
	})
}
