package lifecycle

import "fmt"

// ServiceGraph holds the live topology: which services are registered, their
// running contexts and daemons, and the previous/next edge sets built from
// each service's Before/After declarations (used for introspection only:
// removal-safety checks and the Controller's layering both come from the
// Resolver's effective-dependency map over Requirements).
//
// ServiceGraph is not internally synchronized: like the teacher's
// internal/dependency.Graph, it assumes a single owner goroutine (the
// Controller) calls Subgraph/Apply/Drop; concurrent callers must serialize
// access themselves.
type ServiceGraph struct {
	services map[string]Service
	contexts map[string]*ServiceContext
	daemons  map[string]*Daemon
	previous map[string]map[string]struct{} // id -> ids it comes After
	next     map[string]map[string]struct{} // id -> ids that come After it
}

// NewServiceGraph returns an empty graph.
func NewServiceGraph() *ServiceGraph {
	return &ServiceGraph{
		services: map[string]Service{},
		contexts: map[string]*ServiceContext{},
		daemons:  map[string]*Daemon{},
		previous: map[string]map[string]struct{}{},
		next:     map[string]map[string]struct{}{},
	}
}

// Has reports whether id is currently registered.
func (g *ServiceGraph) Has(id string) bool {
	_, ok := g.services[id]
	return ok
}

// Service returns the registered service for id, if any.
func (g *ServiceGraph) Service(id string) (Service, bool) {
	s, ok := g.services[id]
	return s, ok
}

// Services returns every currently registered service, in no particular order.
func (g *ServiceGraph) Services() []Service {
	out := make([]Service, 0, len(g.services))
	for _, s := range g.services {
		out = append(out, s)
	}
	return out
}

// Context returns the ServiceContext for id, if any.
func (g *ServiceGraph) Context(id string) (*ServiceContext, bool) {
	c, ok := g.contexts[id]
	return c, ok
}

// Daemon returns the Daemon for id, if any.
func (g *ServiceGraph) Daemon(id string) (*Daemon, bool) {
	d, ok := g.daemons[id]
	return d, ok
}

// Previous returns the ids that id declared itself After, plus the ids that
// declared themselves Before id (direct edges only).
func (g *ServiceGraph) Previous(id string) []string {
	return setKeys(g.previous[id])
}

// Next returns the ids that id declared itself Before, plus the ids that
// declared themselves After id (direct edges only).
func (g *ServiceGraph) Next(id string) []string {
	return setKeys(g.next[id])
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Subgraph validates that services can be added to the graph (no id
// conflicts with the live set or with each other, every After/Before
// reference resolves to either a service being added or an already-live
// service) and returns the bind/previous/next maps to pass to Apply. It does
// not mutate the graph: staging validation and commit are separate steps so
// a failed batch never partially registers.
func (g *ServiceGraph) Subgraph(services []Service) (bind map[string]Service, previous, next map[string]map[string]struct{}, err error) {
	bind = make(map[string]Service, len(services))
	for _, s := range services {
		id := s.ID()
		if g.Has(id) {
			return nil, nil, nil, fmt.Errorf("lifecycle: service id %q already registered", id)
		}
		if _, dup := bind[id]; dup {
			return nil, nil, nil, fmt.Errorf("lifecycle: duplicate service id %q in batch", id)
		}
		bind[id] = s
	}

	exists := func(id string) bool {
		if _, ok := bind[id]; ok {
			return true
		}
		return g.Has(id)
	}

	previous = map[string]map[string]struct{}{}
	next = map[string]map[string]struct{}{}
	for id, set := range g.previous {
		previous[id] = cloneSet(set)
	}
	for id, set := range g.next {
		next[id] = cloneSet(set)
	}

	for _, s := range services {
		id := s.ID()
		if previous[id] == nil {
			previous[id] = map[string]struct{}{}
		}
		if next[id] == nil {
			next[id] = map[string]struct{}{}
		}
		for _, p := range s.After() {
			if !exists(p) {
				return nil, nil, nil, fmt.Errorf("lifecycle: service %q declares after %q, which does not exist", id, p)
			}
			previous[id][p] = struct{}{}
			if next[p] == nil {
				next[p] = map[string]struct{}{}
			}
			next[p][id] = struct{}{}
		}
		for _, n := range s.Before() {
			if !exists(n) {
				return nil, nil, nil, fmt.Errorf("lifecycle: service %q declares before %q, which does not exist", id, n)
			}
			next[id][n] = struct{}{}
			if previous[n] == nil {
				previous[n] = map[string]struct{}{}
			}
			previous[n][id] = struct{}{}
		}
	}

	return bind, previous, next, nil
}

func cloneSet(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// Apply commits a batch produced by Subgraph into the live graph.
func (g *ServiceGraph) Apply(bind map[string]Service, previous, next map[string]map[string]struct{}) {
	for id, s := range bind {
		g.services[id] = s
	}
	for id, set := range previous {
		g.previous[id] = set
	}
	for id, set := range next {
		g.next[id] = set
	}
}

// SetContext registers the running ServiceContext for id.
func (g *ServiceGraph) SetContext(id string, sc *ServiceContext) {
	g.contexts[id] = sc
}

// SetDaemon registers the running Daemon for id.
func (g *ServiceGraph) SetDaemon(id string, d *Daemon) {
	g.daemons[id] = d
}

// Drop removes id and every edge referencing it from the graph.
func (g *ServiceGraph) Drop(id string) {
	delete(g.services, id)
	delete(g.contexts, id)
	delete(g.daemons, id)
	delete(g.previous, id)
	delete(g.next, id)
	for _, set := range g.previous {
		delete(set, id)
	}
	for _, set := range g.next {
		delete(set, id)
	}
}

// Requirements projects every currently registered service into a
// Requirement slice, suitable for passing to Resolve/ValidateRemoval.
func (g *ServiceGraph) Requirements() []Requirement {
	out := make([]Requirement, 0, len(g.services))
	for _, s := range g.services {
		out = append(out, Requirement{
			ID:           s.ID(),
			Dependencies: s.Dependencies(),
			Before:       s.Before(),
			After:        s.After(),
		})
	}
	return out
}
