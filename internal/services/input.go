package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reCode    = regexp.MustCompile(`^[0-9]{6}$`)
	reSuffix  = regexp.MustCompile(`^[0-9]{4}$`)
	reTgID    = regexp.MustCompile(`^[0-9]{3,20}$`)
	reNameTok = regexp.MustCompile(`^[\p{L}][\p{L}'\-]*$`)
)

// NormName capitalizes each hyphen-separated part and lowercases the rest
// ("иВАНОВ" -> "Иванов", "петров-водкин" -> "Петров-Водкин").
func NormName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	return strings.Join(parts, "-")
}

// ParseFullName splits "Фамилия Имя [Отчество]" into last and first name.
func ParseFullName(text string) (last, first string, ok bool) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return "", "", false
	}
	if !reNameTok.MatchString(parts[0]) || !reNameTok.MatchString(parts[1]) {
		return "", "", false
	}
	return NormName(parts[0]), NormName(parts[1]), true
}

// ParseLookup parses the staff lookup form "Фамилия 4567".
func ParseLookup(text string) (lastName, suffix string, ok bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 || !reSuffix.MatchString(parts[1]) {
		return "", "", false
	}
	return NormName(parts[0]), parts[1], true
}

// ParseAmount accepts a positive integer point amount.
func ParseAmount(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 || n > 1000 {
		return 0, false
	}
	return n, true
}

// IsRedemptionCode reports whether text is exactly six digits.
func IsRedemptionCode(text string) bool {
	return reCode.MatchString(strings.TrimSpace(text))
}

// ParseTelegramID accepts a numeric Telegram user id.
func ParseTelegramID(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if !reTgID.MatchString(s) {
		return "", false
	}
	return s, true
}
