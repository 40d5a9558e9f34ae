// Package evidence appends endpoint-set snapshots to a write-only record
// consumed by an external attestation collaborator. It is an observational
// side channel: a failed write never fails the reconciliation cycle.
package evidence
