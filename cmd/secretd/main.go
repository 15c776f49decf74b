// Secretd serves a file-mounted secret with rotation awareness.
//
// It keeps a read-through cache over a secret file delivered by a CSI-style
// mount, watches the mount directory for atomic rotation swaps, and exposes
// an HTTP surface for retrieval, diagnostics, manual reloads, and rotation
// history.
//
// Usage:
//
//	# Start with default configuration
//	secretd run
//
//	# Start with a custom configuration file
//	secretd run --config /etc/secretd/config.yaml
//
//	# Validate a configuration file without starting
//	secretd validate
//
//	# Show version information
//	secretd version
package main

func main() {
	Execute()
}
