//go:build !linux && !darwin

package notify

import (
	"context"

	appLog "nextcall/internal/log"
)

// send has no desktop integration on this platform; log the notification so
// it is at least operator-visible.
func send(_ context.Context, title, subtitle, body, url string) error {
	appLog.Info("notification", "title", title, "subtitle", subtitle, "body", body, "url", url)
	return nil
}
