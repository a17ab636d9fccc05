//go:build go1.24

package logging

import "log/slog"

// DiscardHandler discards all log output.
var DiscardHandler slog.Handler = slog.DiscardHandler
