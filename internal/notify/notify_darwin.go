package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// send shows a notification center banner via osascript.
func send(ctx context.Context, title, subtitle, body, url string) error {
	text := body
	if url != "" && url != body {
		if text != "" {
			text += " "
		}
		text += url
	}

	script := fmt.Sprintf("display notification %s with title %s subtitle %s sound name %s",
		appleQuote(text), appleQuote(title), appleQuote(subtitle), appleQuote("Blow"))

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	return cmd.Run()
}

func appleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
