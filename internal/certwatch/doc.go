// Package certwatch reloads the proxy when the external certificate
// tooling renews TLS material on disk. It only observes files; certificate
// acquisition happens elsewhere.
package certwatch
