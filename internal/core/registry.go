package core

import (
	"cmp"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is the concurrent set of authenticated, connected clients keyed by id.
type Registry struct {
	clients *xsync.MapOf[int64, *Client]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: xsync.NewMapOf[int64, *Client]()}
}

// Add inserts an authenticated client. Returns an error if it is unauthenticated
// or its id is already present.
func (r *Registry) Add(c *Client) error {
	if !c.Authenticated() {
		return ErrNotAuthorized
	}
	if _, loaded := r.clients.LoadOrStore(c.ID, c); loaded {
		return ErrDuplicateID
	}
	return nil
}

// Remove deletes id and returns the client that was there, if any.
func (r *Registry) Remove(id int64) (*Client, bool) {
	return r.clients.LoadAndDelete(id)
}

// Get looks up a client by id.
func (r *Registry) Get(id int64) (*Client, bool) {
	return r.clients.Load(id)
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	return r.clients.Size()
}

// Snapshot returns the registered clients ordered by id.
// Clients added while it runs may or may not be included.
func (r *Registry) Snapshot() []*Client {
	out := make([]*Client, 0, r.clients.Size())
	r.clients.Range(func(_ int64, c *Client) bool {
		out = append(out, c)
		return true
	})
	slices.SortFunc(out, func(a, b *Client) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
