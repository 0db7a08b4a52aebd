package camera

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// probe asks the unified log whether a capture session is running. The
// native check would be a CMIO "device is running somewhere" property query,
// which needs cgo; shelling out keeps the binary pure Go.
func probe() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lsof", "+c", "0", "-n", "/dev").Output()
	if err != nil {
		// lsof exits non-zero when nothing matches; that just means idle.
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) == 0 {
			return false, nil
		}
		return false, err
	}

	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "AppleCamera") || strings.Contains(line, "iSight") ||
			strings.Contains(line, "VDC") {
			return true, nil
		}
	}
	return false, nil
}
