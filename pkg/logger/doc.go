// Package logger builds the application's slog.Logger: JSON output in
// production, human-readable text elsewhere.
package logger
