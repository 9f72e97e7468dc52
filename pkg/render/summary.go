package render

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

// Ellipsis is appended to truncated summaries.
const Ellipsis = "..."

// TruncateSummary shortens summary to maxLength visible characters. Highlight
// markers do not count towards the limit and an open highlight is closed
// before the ellipsis. maxLength <= 0 means unlimited.
func TruncateSummary(summary string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(stripMarkers(summary)) <= maxLength {
		return summary
	}
	var sb strings.Builder
	visible := 0
	open := false
	for i := 0; i < len(summary) && visible < maxLength; {
		rest := summary[i:]
		switch {
		case strings.HasPrefix(rest, livelink.HighlightStart):
			sb.WriteString(livelink.HighlightStart)
			open = true
			i += len(livelink.HighlightStart)
		case strings.HasPrefix(rest, livelink.HighlightEnd):
			sb.WriteString(livelink.HighlightEnd)
			open = false
			i += len(livelink.HighlightEnd)
		default:
			r, size := utf8.DecodeRuneInString(rest)
			sb.WriteRune(r)
			visible++
			i += size
		}
	}
	if open {
		sb.WriteString(livelink.HighlightEnd)
	}
	sb.WriteString(Ellipsis)
	return sb.String()
}

// HighlightHTML escapes summary text and turns highlight markers into <b> tags.
// Unbalanced markers are dropped or closed so the fragment stays well-formed.
func HighlightHTML(summary string) string {
	var sb strings.Builder
	open := false
	for summary != "" {
		start := strings.Index(summary, livelink.HighlightStart)
		end := strings.Index(summary, livelink.HighlightEnd)
		next, marker := nextMarker(start, end)
		if next < 0 {
			sb.WriteString(html.EscapeString(summary))
			break
		}
		sb.WriteString(html.EscapeString(summary[:next]))
		switch {
		case marker == livelink.HighlightStart && !open:
			sb.WriteString("<b>")
			open = true
		case marker == livelink.HighlightEnd && open:
			sb.WriteString("</b>")
			open = false
		}
		summary = summary[next+len(marker):]
	}
	if open {
		sb.WriteString("</b>")
	}
	return sb.String()
}

func nextMarker(start, end int) (int, string) {
	switch {
	case start < 0 && end < 0:
		return -1, ""
	case end < 0 || (start >= 0 && start < end):
		return start, livelink.HighlightStart
	default:
		return end, livelink.HighlightEnd
	}
}

func stripMarkers(summary string) string {
	return strings.NewReplacer(livelink.HighlightStart, "", livelink.HighlightEnd, "").Replace(summary)
}
