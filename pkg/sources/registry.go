package sources

import (
	"fmt"

	"github.com/kerbaras/mangetsu/pkg/data"
)

// Registry holds the known connectors in registration order.
type Registry struct {
	ordered []Connector
	byID    map[data.ConnectorID]Connector
}

func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{byID: make(map[data.ConnectorID]Connector)}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds a connector. Registering the same ID twice is a programming
// error and panics.
func (r *Registry) Register(c Connector) {
	id := c.Info().ID
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("connector already registered: %s", id))
	}
	r.byID[id] = c
	r.ordered = append(r.ordered, c)
}

func (r *Registry) Get(id data.ConnectorID) (Connector, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Resolve returns the first registered connector able to handle uri.
func (r *Registry) Resolve(uri string) (Connector, bool) {
	for _, c := range r.ordered {
		if c.CanHandleURI(uri) {
			return c, true
		}
	}
	return nil, false
}

func (r *Registry) All() []Connector {
	out := make([]Connector, len(r.ordered))
	copy(out, r.ordered)
	return out
}
