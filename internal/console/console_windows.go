// Package console handles how the process was started on Windows and
// delivers Ctrl+C while SDL holds a locked OS thread.
package console

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"unsafe"
)

var (
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetConsoleWindow           = kernel32.NewProc("GetConsoleWindow")
	procAllocConsole               = kernel32.NewProc("AllocConsole")
	procFreeConsole                = kernel32.NewProc("FreeConsole")
	procGetStdHandle               = kernel32.NewProc("GetStdHandle")
	procCreateToolhelp32Snapshot   = kernel32.NewProc("CreateToolhelp32Snapshot")
	procProcess32First             = kernel32.NewProc("Process32FirstW")
	procProcess32Next              = kernel32.NewProc("Process32NextW")
	procOpenProcess                = kernel32.NewProc("OpenProcess")
	procQueryFullProcessImageNameW = kernel32.NewProc("QueryFullProcessImageNameW")
	procSetConsoleCtrlHandler      = kernel32.NewProc("SetConsoleCtrlHandler")
)

const (
	snapProcess         = 0x00000002
	processQueryLimited = 0x1000
	maxPath             = 260
	ctrlCEvent          = 0
	ctrlBreakEvent      = 1
	stdInputHandle      = ^uintptr(10 - 1) // -10
	stdOutputHandle     = ^uintptr(11 - 1) // -11
	stdErrorHandle      = ^uintptr(12 - 1) // -12
)

type processEntry struct {
	Size            uint32
	Usage           uint32
	ProcessID       uint32
	DefaultHeapID   uintptr
	ModuleID        uint32
	Threads         uint32
	ParentProcessID uint32
	PriClassBase    int32
	Flags           uint32
	ExeFile         [maxPath]uint16
}

// Interactive reports whether the process has a terminal to log to. A build
// double-clicked from Explorer drops its console and runs from the tray; a
// GUI build started from a terminal gets a console of its own.
func Interactive() bool {
	fromExplorer := parentIsExplorer()
	if hasConsoleWindow() {
		if fromExplorer {
			procFreeConsole.Call()
			return false
		}
		return true
	}
	if fromExplorer {
		return false
	}

	// AllocConsole rather than AttachConsole: a shared console confuses input.
	procAllocConsole.Call()
	redirectStdStreams()
	return true
}

func hasConsoleWindow() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd != 0
}

// redirectStdStreams points os.Std* and the log package at a console
// allocated after startup.
func redirectStdStreams() {
	stdout, _, _ := procGetStdHandle.Call(stdOutputHandle)
	stderr, _, _ := procGetStdHandle.Call(stdErrorHandle)
	stdin, _, _ := procGetStdHandle.Call(stdInputHandle)
	if stdout == 0 || stderr == 0 {
		return
	}

	os.Stdout = os.NewFile(stdout, "/dev/stdout")
	os.Stderr = os.NewFile(stderr, "/dev/stderr")
	if stdin != 0 {
		os.Stdin = os.NewFile(stdin, "/dev/stdin")
	}
	log.SetOutput(os.Stderr)
}

func parentIsExplorer() bool {
	ppid := parentProcessID(uint32(os.Getpid()))
	if ppid == 0 {
		return false
	}
	name := processImageName(ppid)
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return strings.EqualFold(name, "explorer.exe")
}

func parentProcessID(pid uint32) uint32 {
	snap, _, _ := procCreateToolhelp32Snapshot.Call(snapProcess, 0)
	if snap == uintptr(syscall.InvalidHandle) {
		return 0
	}
	defer syscall.CloseHandle(syscall.Handle(snap))

	var entry processEntry
	entry.Size = uint32(unsafe.Sizeof(entry))
	ret, _, _ := procProcess32First.Call(snap, uintptr(unsafe.Pointer(&entry)))
	for ret != 0 {
		if entry.ProcessID == pid {
			return entry.ParentProcessID
		}
		ret, _, _ = procProcess32Next.Call(snap, uintptr(unsafe.Pointer(&entry)))
	}
	return 0
}

func processImageName(pid uint32) string {
	h, _, _ := procOpenProcess.Call(processQueryLimited, 0, uintptr(pid))
	if h == 0 {
		return ""
	}
	defer syscall.CloseHandle(syscall.Handle(h))

	var buf [maxPath]uint16
	size := uint32(maxPath)
	ret, _, _ := procQueryFullProcessImageNameW.Call(h, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:size])
}

var (
	interrupted atomic.Bool
	interruptCh chan struct{}
	ctrlHandler uintptr
)

// NotifyInterrupt closes ch on Ctrl+C or Ctrl+Break. os/signal misses these
// while SDL owns a locked thread, and SDL replaces console handlers during
// init, so the returned function registers the handler again.
func NotifyInterrupt(ch chan struct{}) (reregister func()) {
	interruptCh = ch
	if ctrlHandler == 0 {
		ctrlHandler = syscall.NewCallback(func(ctrlType uint32) uintptr {
			if ctrlType != ctrlCEvent && ctrlType != ctrlBreakEvent {
				return 0
			}
			if interrupted.CompareAndSwap(false, true) {
				close(interruptCh)
			}
			return 1
		})
	}

	register := func() {
		if ret, _, _ := procSetConsoleCtrlHandler.Call(ctrlHandler, 1); ret == 0 {
			log.Printf("Warning: failed to set console control handler")
		}
	}
	register()
	return register
}
