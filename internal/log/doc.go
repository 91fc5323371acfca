// Package log builds the slog loggers used across jurisdata.
//
// The SecureHandler wraps any slog.Handler and rewrites attributes before
// they reach the output:
//   - values under credential-like keys (proxy passwords, tokens, cookies)
//     are replaced with MaskValue
//   - values that look like bearer tokens or JWTs are masked regardless of key
//   - raw protocol payloads (keys such as "payload", "raw" and
//     "example_content") are truncated to MaxPayloadLen bytes
//
// Malformed discovery responses are logged with their raw bytes, so the
// truncation keeps a single bad response from flooding the terminal.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("malformed response",
//	    "payload", string(raw), // truncated
//	    "bytes", len(raw),
//	)
package log
