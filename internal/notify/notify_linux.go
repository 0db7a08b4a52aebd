package notify

import (
	"context"
	"os/exec"
)

// send shows a desktop notification via notify-send. The video link goes
// into the body; freedesktop notifications have no click-through URL, so
// the link is at least visible and copyable.
func send(ctx context.Context, title, subtitle, body, url string) error {
	text := subtitle
	if body != "" {
		if text != "" {
			text += "\n"
		}
		text += body
	}
	if url != "" && url != body {
		if text != "" {
			text += "\n"
		}
		text += url
	}

	cmd := exec.CommandContext(ctx, "notify-send", "--app-name=nextcall", title, text)
	return cmd.Run()
}
