//go:build windows

package main

import (
	"os"
	"os/signal"
	"syscall"
	"unsafe"
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode = kernel32.NewProc("GetConsoleMode")
	procSetConsoleMode = kernel32.NewProc("SetConsoleMode")
	procGetStdHandle   = kernel32.NewProc("GetStdHandle")
)

const (
	stdErrorHandle                  = ^uintptr(0) - 12 + 1 // STD_ERROR_HANDLE = -12
	enableVirtualTerminalProcessing = 0x0004
)

// enableANSI turns on escape code processing for stderr on Windows 10+
// and reports whether it succeeded.
func enableANSI() bool {
	handle, _, _ := procGetStdHandle.Call(stdErrorHandle)
	if handle == 0 {
		return false
	}
	var mode uint32
	r, _, _ := procGetConsoleMode.Call(handle, uintptr(unsafe.Pointer(&mode)))
	if r == 0 {
		return false
	}
	r, _, _ = procSetConsoleMode.Call(handle, uintptr(mode|enableVirtualTerminalProcessing))
	return r != 0
}

// notifyShutdown relays the signals that stop a running crawl.
// Windows only delivers SIGINT (Ctrl+C).
func notifyShutdown(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGINT)
}
