package objects

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenChars matches characters that may not appear in an object id.
var forbiddenChars = regexp.MustCompile(`[^._\-/ :!#$%&()+=@^{}|~\p{Ll}\p{Lu}\p{Nd}]`)

// ValidateID checks that id is usable as an object or state id.
//
// An id must be non-empty, contain only permitted characters, and have no
// empty dot-separated segment.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if loc := forbiddenChars.FindStringIndex(id); loc != nil {
		return fmt.Errorf("%w: %q contains forbidden character %q", ErrInvalidID, id, id[loc[0]:loc[1]])
	}
	for _, part := range strings.Split(id, ".") {
		if part == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidID, id)
		}
	}
	return nil
}

// SanitizeID replaces every forbidden character in name with "_" and turns
// dots into "_" so the result is usable as a single id segment.
//
// Example: SanitizeID("Pixel 7a (work)") → "Pixel 7a (work)";
// SanitizeID("ü.ß*") → "ü_ß_".
func SanitizeID(name string) string {
	name = forbiddenChars.ReplaceAllString(name, "_")
	return strings.ReplaceAll(name, ".", "_")
}

// JoinID joins id segments with ".".
func JoinID(parts ...string) string {
	return strings.Join(parts, ".")
}
