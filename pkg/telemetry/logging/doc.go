// Package logging configures structured logging for secretd on top of
// log/slog, with redaction so secret material never reaches log output.
package logging
