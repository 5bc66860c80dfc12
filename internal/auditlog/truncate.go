package auditlog

const (
	// maxTextLen caps free-text fields before persistence to bound storage
	// and transport cost.
	maxTextLen = 50000

	// TruncationMarker is appended in-band so readers know content was cut.
	// Truncation is lossy and irreversible.
	TruncationMarker = "... [TRUNCATED]"
)

// Truncate caps s at maxTextLen characters, flagging the cut with the marker.
func Truncate(s string) string {
	if len(s) <= maxTextLen {
		return s
	}
	return s[:maxTextLen] + TruncationMarker
}
