package cassandra

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry holds named clients for embedders that want a process-wide
// lookup. It replaces ambient global state with an explicit handle that has
// an init/reset lifecycle, so tests can build and tear down their own.
// Prefer passing *Client directly; use a Registry only at composition
// roots.
type Registry struct {
	mtx     sync.Mutex
	clients map[string]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register adds a named client; registering a duplicate name is an error so
// wiring mistakes surface at startup.
func (r *Registry) Register(name string, client *Client) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.clients[name]; ok {
		return errors.Errorf("client %q already registered", name)
	}
	r.clients[name] = client
	return nil
}

// Lookup returns the named client.
func (r *Registry) Lookup(name string) (*Client, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, errors.Errorf("no client registered as %q", name)
	}
	return client, nil
}

// Names lists registered client names in sorted order.
func (r *Registry) Names() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset closes every registered client and empties the registry.
func (r *Registry) Reset() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	for name, client := range r.clients {
		client.Close()
		delete(r.clients, name)
	}
}
