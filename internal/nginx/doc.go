// Package nginx renders, validates, and applies the load-balancer
// configuration for the running proxy. Each operating mode maps to its own
// renderer; the applier stages a candidate file, runs the proxy's own
// syntax check against it, and only then swaps it into the live path and
// reloads, so a bad configuration can never reach the data plane.
package nginx
