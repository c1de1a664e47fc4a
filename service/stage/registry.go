package stage

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps node names to stage implementations. The node-to-stage table
// is built at orchestrator construction; Register after that point only
// serves extension stages added before the first run.
type Registry struct {
	mux      sync.RWMutex
	services map[string]Service
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: map[string]Service{}}
}

// Register binds a stage implementation under its name; duplicates are
// rejected.
func (r *Registry) Register(service Service) error {
	if service == nil {
		return fmt.Errorf("cannot register nil stage")
	}
	name := service.Name()
	if name == "" {
		return fmt.Errorf("stage has empty name")
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.services[name]; ok {
		return fmt.Errorf("stage %q already registered", name)
	}
	r.services[name] = service
	return nil
}

// Lookup returns the stage registered under name.
func (r *Registry) Lookup(name string) (Service, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	service, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("stage %q not registered", name)
	}
	return service, nil
}

// Names returns registered stage names, sorted.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
