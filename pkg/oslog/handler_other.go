//go:build !darwin

package oslog

import "log/slog"

// NewHandler returns nil: there is no supported system log on this platform.
func NewHandler(level slog.Leveler) slog.Handler {
	return nil
}
