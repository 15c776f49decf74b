// Package server provides the HTTP surface of the secret daemon: secret
// retrieval and diagnostics, manual reload, rotation history, probes, and
// metrics. Handlers never format secret values into logs; the logging
// middleware records request metadata only.
package server
