package main

import (
	"os"
	"os/signal"
	"syscall"
)

var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// interruptListener starts listening for SIGINT/SIGTERM and returns a
// channel that is closed the moment one arrives.
func interruptListener() <-chan struct{} {
	c := make(chan os.Signal, 1)
	signal.Notify(c, interruptSignals...)
	done := make(chan struct{})
	go func() {
		sig := <-c
		log.Infof("received signal (%s), shutting down", sig)
		close(done)
	}()
	return done
}
