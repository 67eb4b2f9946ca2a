package smartname

import "strings"

// nameSeparator joins multiple display names in one language entry.
const nameSeparator = ", "

// SplitNames splits a comma-separated name list, trimming whitespace and
// dropping empty entries.
func SplitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// DedupeNames drops case-insensitive duplicates. The first spelling wins
// and order is kept.
func DedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// JoinNames joins names with ", ".
func JoinNames(names []string) string {
	return strings.Join(names, nameSeparator)
}

// CanonicalNames splits, deduplicates and rejoins s.
func CanonicalNames(s string) string {
	return JoinNames(DedupeNames(SplitNames(s)))
}
