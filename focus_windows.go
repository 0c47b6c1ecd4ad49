//go:build windows

package main

import "github.com/llehouerou/undertow/internal/interrupt"

// No signal-based focus events on Windows.
func watchFocusSignals(_ *interrupt.ChannelSource) {}
