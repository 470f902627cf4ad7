//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// enableANSI reports whether the terminal can render color codes. Unix
// terminals support ANSI natively unless TERM says otherwise.
func enableANSI() bool {
	return os.Getenv("TERM") != "dumb"
}

// notifyShutdown relays the signals that stop a running crawl.
func notifyShutdown(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
}
