package endpoint

import (
	"net"
	"sort"
	"strconv"
)

// Endpoint identifies one backend instance. It carries no identity beyond
// the host:port pair.
type Endpoint struct {
	Host string
	Port int
}

// New creates an Endpoint for the given host and port.
func New(host string, port int) Endpoint {
	return Endpoint{Host: host, Port: port}
}

// Key returns the canonical host:port form used as the cache and upstream key.
func (e Endpoint) Key() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Key()
}

// Set is a collection of endpoints compared by membership. The zero value
// is not usable; construct with NewSet.
type Set struct {
	members map[Endpoint]struct{}
}

// NewSet creates a Set containing the given endpoints.
func NewSet(endpoints ...Endpoint) Set {
	s := Set{members: make(map[Endpoint]struct{}, len(endpoints))}
	for _, e := range endpoints {
		s.members[e] = struct{}{}
	}
	return s
}

// Add inserts an endpoint into the set.
func (s Set) Add(e Endpoint) {
	s.members[e] = struct{}{}
}

// Contains reports whether the endpoint is a member of the set.
func (s Set) Contains(e Endpoint) bool {
	_, ok := s.members[e]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.members)
}

// List returns the members sorted by key, so callers that render or log the
// set produce deterministic output.
func (s Set) List() []Endpoint {
	out := make([]Endpoint, 0, len(s.members))
	for e := range s.members {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Keys returns the sorted host:port keys of all members.
func (s Set) Keys() []string {
	list := s.List()
	keys := make([]string, len(list))
	for i, e := range list {
		keys[i] = e.Key()
	}
	return keys
}

// Equal reports whether both sets contain exactly the same endpoints,
// ignoring order.
func (s Set) Equal(other Set) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for e := range s.members {
		if _, ok := other.members[e]; !ok {
			return false
		}
	}
	return true
}
