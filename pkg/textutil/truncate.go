package textutil

// Truncate shortens s to at most max runes, appending "..." when anything
// was cut. Rune-safe so accented French text never splits mid-character.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// RuneLen counts runes rather than bytes; message limits are character limits.
func RuneLen(s string) int {
	return len([]rune(s))
}
