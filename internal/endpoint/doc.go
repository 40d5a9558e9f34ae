// Package endpoint defines the Endpoint value type identifying one backend
// instance by host and port, and a Set type compared by membership rather
// than order.
package endpoint
