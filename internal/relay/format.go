package relay

import (
	"unicode/utf8"

	"slack_line_mirror/internal/model"
)

// maxNotificationRunes is the LINE text message ceiling.
const maxNotificationRunes = 1000

const truncationMarker = "..."

// FormatNotification renders a source message as a single LINE
// notification: "[#channel] author: text". The result never exceeds
// maxNotificationRunes. Overlong text is cut to an exact rune budget
// with a truncation marker, and the permalink (when present) survives
// the cut on its own line.
func FormatNotification(channelName string, msg model.Message) string {
	author := msg.UserID
	if author == "" {
		author = "unknown"
	}
	text := msg.Text
	if text == "" {
		text = "(no text)"
	}

	prefix := "[#" + channelName + "] " + author + ": "
	suffix := ""
	if msg.Permalink != "" {
		suffix = "\n" + msg.Permalink
	}

	whole := prefix + text + suffix
	if utf8.RuneCountInString(whole) <= maxNotificationRunes {
		return whole
	}

	budget := maxNotificationRunes -
		utf8.RuneCountInString(prefix) -
		utf8.RuneCountInString(truncationMarker) -
		utf8.RuneCountInString(suffix)
	if budget < 0 {
		// Prefix and link alone blow the ceiling; keep whatever fits.
		return firstNRunes(prefix+truncationMarker+suffix, maxNotificationRunes)
	}
	return prefix + firstNRunes(text, budget) + truncationMarker + suffix
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
