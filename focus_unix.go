//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/llehouerou/undertow/internal/interrupt"
)

// watchFocusSignals translates SIGUSR1/SIGUSR2 into audio-focus events:
// SIGUSR1 begins an interruption, SIGUSR2 ends it with a resume hint.
func watchFocusSignals(focus *interrupt.ChannelSource) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	for sig := range ch {
		if sig == syscall.SIGUSR1 {
			focus.Send(interrupt.Event{Began: true})
		} else {
			focus.Send(interrupt.Event{ShouldResume: true})
		}
	}
}
