// Package prober determines which candidate endpoints are currently
// reachable. It consults a negative cache before touching the network,
// probes the remaining candidates concurrently under a worker bound, and
// falls back to a fully sequential pass if the concurrent path breaks.
package prober
