// Package health provides liveness and readiness probes for the daemon.
// Readiness aggregates named component checks (secret source readability,
// rotation history store) and degrades instead of failing hard when the
// secret backend is absent, matching the cache's fallback behavior.
package health
