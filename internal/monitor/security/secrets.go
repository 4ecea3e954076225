package security

import "regexp"

// SweepResult summarizes one secret sweep. Files holds the distinct flagged
// paths (relative to the scan root); RawMatches sums, per flagged file, the
// matches of the first pattern that hit. The score uses len(Files); the
// short-circuit means later patterns in the same file are never counted.
type SweepResult struct {
	Files      []string
	RawMatches int
}

// secretPatterns match key = "value" shaped assignments for common
// credential names. Case-insensitive; quotes may be single or double.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password\s*[:=]\s*["'][^"']+["']`),
	regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*["'][^"']+["']`),
	regexp.MustCompile(`(?i)secret\s*[:=]\s*["'][^"']+["']`),
	regexp.MustCompile(`(?i)token\s*[:=]\s*["'][^"']+["']`),
	regexp.MustCompile(`(?i)aws[_-]?(?:access|secret)[_-]?(?:access[_-]?)?key(?:[_-]?id)?\s*[:=]\s*["'][^"']+["']`),
}

// ScanContent returns the match count of the first pattern that hits, or 0
// when no pattern matches. One hit is enough to flag a file, so remaining
// patterns are not evaluated.
func ScanContent(data []byte) int {
	for _, pattern := range secretPatterns {
		if matches := pattern.FindAll(data, -1); len(matches) > 0 {
			return len(matches)
		}
	}
	return 0
}
