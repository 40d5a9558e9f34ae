// Package reconciler decides, once per cycle, whether the healthy set
// warrants a configuration update. It holds the Active Configuration
// snapshot: the endpoint set of the last successfully applied
// configuration, replaced only after a validated apply, never partially.
package reconciler
