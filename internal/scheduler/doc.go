// Package scheduler drives the reconciliation loop: retry-until-success
// during bootstrap, then a fixed-interval steady phase where cycle failures
// are logged and swallowed. Cycles are strictly sequential.
package scheduler
