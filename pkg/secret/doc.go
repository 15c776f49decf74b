// Package secret implements the mounted-secret cache and the filesystem
// watcher that keeps it synchronized with out-of-band rotations.
//
// The cache is read-through: every Get performs a fresh read of the mounted
// file, so callers always observe the latest value even when no watcher is
// installed. The watcher is a latency optimization, never a correctness
// dependency. Rotations are delivered by the secret-delivery mechanism as an
// atomic symlink swap: the parent directory holds the secret's base filename
// and a hidden "..data" indirection entry that is repointed to a new
// versioned subdirectory. The watcher treats events for either entry as a
// rotation signal and reloads after a short debounce so the multi-step swap
// can settle.
//
// All read failures are absorbed into sentinel values; nothing in this
// package propagates a secret-retrieval failure to the transport layer.
package secret
