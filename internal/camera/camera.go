// Package camera answers one question: is a capture device in use right
// now? The answer gates notification delivery — nobody wants a "join your
// call" popup and announcement while they are already on a call.
package camera

import (
	"os"
	"path/filepath"
	"strings"

	appLog "nextcall/internal/log"
)

// Checker reports whether any camera is currently in use. Implements
// meeting.Oracle.
type Checker struct{}

// New returns a Checker for the current platform.
func New() *Checker {
	return &Checker{}
}

// Busy reports whether a capture device appears to be in use. Probe errors
// are treated as "not busy": a broken probe must delay notifications at
// worst, never suppress them forever.
func (c *Checker) Busy() bool {
	busy, err := probe()
	if err != nil {
		appLog.Debug("camera probe failed", "err", err)
		return false
	}
	return busy
}

// Disabled is an Oracle that never reports busy, used when the camera check
// is switched off in config.
type Disabled struct{}

func (Disabled) Busy() bool { return false }

// videoDevices lists candidate V4L device nodes.
func videoDevices() []string {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil
	}
	return matches
}

// procHoldsDevice reports whether any process has an open fd on one of the
// given device paths, by walking /proc/*/fd symlinks.
func procHoldsDevice(devices []string) bool {
	if len(devices) == 0 {
		return false
	}
	devSet := make(map[string]bool, len(devices))
	for _, d := range devices {
		devSet[d] = true
	}

	procs, err := os.ReadDir("/proc")
	if err != nil {
		return false
	}
	for _, p := range procs {
		if !p.IsDir() || !isNumeric(p.Name()) {
			continue
		}
		fdDir := filepath.Join("/proc", p.Name(), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			// Other users' processes are unreadable; skip.
			continue
		}
		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil {
				continue
			}
			if devSet[target] || strings.HasPrefix(target, "/dev/video") {
				return true
			}
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
