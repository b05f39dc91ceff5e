//go:build !linux

package daemon

import (
	"context"
	"log/slog"

	"ledmatrix/internal/animator"
)

// hotplugMonitor is inert where udev is unavailable.
type hotplugMonitor struct{}

func newHotplugMonitor(map[string]animator.Target, func(string, animator.Target, string), *slog.Logger) *hotplugMonitor {
	return nil
}

func (m *hotplugMonitor) Start(context.Context) error { return nil }

func (m *hotplugMonitor) Stop() {}

func (m *hotplugMonitor) Running() bool { return false }
