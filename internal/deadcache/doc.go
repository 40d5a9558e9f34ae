// Package deadcache implements a TTL-scoped negative cache of recently
// failed endpoints. A live entry lets the prober skip a full-timeout probe
// of an endpoint that was unreachable moments ago; entries expire lazily on
// lookup and in bulk via Sweep.
package deadcache
