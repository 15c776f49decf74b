// Package history persists an audit trail of observed secret rotations.
//
// Each rotation is stored with a unique ID, the trigger that observed it,
// and SHA-256 fingerprints of the old and new values. Raw secret values are
// never written to the store.
package history
