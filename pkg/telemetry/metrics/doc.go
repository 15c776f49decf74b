// Package metrics exposes Prometheus instrumentation for the secret cache,
// the rotation watcher, and the HTTP surface. All metrics live in a
// dedicated registry so tests can assert on gathered output without
// cross-test interference.
package metrics
