package validation

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// Pre-flight credential checks, run before touching the database so a
// typo never costs a round trip. These are not the security boundary;
// the login handler is.

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// ValidateEmail returns a user-facing message, or "" if the email looks sane.
func ValidateEmail(email string) string {
	if !emailRe.MatchString(email) {
		return "Invalid email format"
	}
	return ""
}

// ValidatePassword runs the policy checks in a fixed order
// (length, capital letter, number, symbol) and returns the first
// failing rule's message, or "" when all pass. Length is counted in
// UTF-16 units and the letter/number classes are ASCII only, the same
// checks the browser client runs; an accented capital does not satisfy
// the capital-letter rule.
func ValidatePassword(pw string) string {
	if len(utf16.Encode([]rune(pw))) < 8 {
		return "Password must be 8+ chars"
	}
	if !containsRange(pw, 'A', 'Z') {
		return "Missing capital letter"
	}
	if !containsRange(pw, '0', '9') {
		return "Missing number"
	}
	if !strings.ContainsAny(pw, passwordSymbols) {
		return "Missing special symbol"
	}
	return ""
}

func containsRange(s string, lo, hi byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= lo && s[i] <= hi {
			return true
		}
	}
	return false
}
