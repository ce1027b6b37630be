package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds every configured Client by name, adapted from an
// earlier downloader registry. Unlike that registry there is no
// AutoDetect: the pipeline always knows which provider it wants by name
// (priority band, config key), never sniffs an identifier to find one.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	order   map[string]int // registration ordinal, for provider_ordinal tiebreaks
	next    int
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		order:   make(map[string]int),
	}
}

// Register installs a client under its own Name(). Registration order is
// preserved as the provider_ordinal used in CandidateURLs.Sort.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	r.clients[name] = c
	if _, seen := r.order[name]; !seen {
		r.order[name] = r.next
		r.next++
	}
}

// Get returns the client registered under name, or an error if absent.
func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("providers: no client registered for %q", name)
	}
	return c, nil
}

// Ordinal returns the registration order of name, used as the final
// tiebreaker in CandidateURLs.Sort.
func (r *Registry) Ordinal(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order[name]
}

// List returns every registered client name, sorted for deterministic
// iteration (the order providers are fanned out to for URL collection and
// citation discovery).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered client, in the same order as List.
func (r *Registry) All() []Client {
	names := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(names))
	for _, n := range names {
		out = append(out, r.clients[n])
	}
	return out
}
