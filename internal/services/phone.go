package services

import (
	"regexp"
	"strings"
)

var (
	// Only allow digits, spaces, +, -, (, )
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)]+$`)
	reDigits  = regexp.MustCompile(`^[0-9]+$`)
)

// NormPhone normalizes a Russian mobile number to the canonical 7XXXXXXXXXX form.
// Rules: strip spaces/dashes/parens; +7.. -> 7..; 8.. -> 7..; exactly 11 digits.
func NormPhone(p string) (string, bool) {
	s := strings.TrimSpace(p)
	if s == "" || !reAllowed.MatchString(s) {
		return "", false
	}

	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\t", "")
	s = repl.Replace(s)

	switch {
	case strings.HasPrefix(s, "+7"):
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		return "", false
	case strings.HasPrefix(s, "8"):
		s = "7" + s[1:]
	}

	if len(s) != 11 || !strings.HasPrefix(s, "7") || !reDigits.MatchString(s) {
		return "", false
	}
	return s, true
}

// PhoneSuffix returns the last four digits staff use to identify a customer.
func PhoneSuffix(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
