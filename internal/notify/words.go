package notify

import "fmt"

var smallNumbers = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
}

// intAsWord spells out small numbers for spoken text; larger ones stay
// numeric.
func intAsWord(n int) string {
	if n >= 0 && n < len(smallNumbers) {
		return smallNumbers[n]
	}
	return fmt.Sprintf("%d", n)
}

// DisplayInterval renders a duration in seconds as a rough human phrase for
// log lines ("less than a minute", "two hours", "1 day, three hours").
func DisplayInterval(seconds int64) string {
	minutes := seconds / 60
	hours := seconds / 3600
	days := seconds / 86400

	switch {
	case seconds < 60:
		return "less than a minute"
	case seconds < 3600:
		return fmt.Sprintf("%d minute%s", minutes, plural(minutes))
	case seconds < 86400:
		return fmt.Sprintf("%s hour%s", intAsWord(int(hours)), plural(hours))
	case seconds < 172800:
		remaining := (seconds - 86400) / 3600
		return fmt.Sprintf("1 day, %s hour%s", intAsWord(int(remaining)), plural(remaining))
	default:
		return fmt.Sprintf("%s day%s", intAsWord(int(days)), plural(days))
	}
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
