package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords are rejected outright when RejectVeryWeak is set. Compared lowercased.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"passw0rd":    {},
	"123456":      {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwerty":      {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"letmein":     {},
	"welcome1":    {},
	"admin123":    {},
	"abc12345":    {},
	"football":    {},
	"baseball":    {},
	"sunshine":    {},
	"princess":    {},
	"trustno1":    {},
	"changeme":    {},
}

// Validate checks password policy. Lengths are counted in runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && looksVeryWeak(password):
		return ErrWeakPassword
	}
	return nil
}

// looksVeryWeak catches only the trivially guessable shapes: well-known
// passwords, short PINs, one repeated unit and straight runs like "abcdefgh".
func looksVeryWeak(pw string) bool {
	s := strings.ToLower(strings.TrimSpace(pw))
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[s]; ok {
		return true
	}

	runes := []rune(s)
	if isShortPIN(runes) || repeatsUnit(runes, 3) || isStraightRun(runes) {
		return true
	}
	return false
}

func isShortPIN(rs []rune) bool {
	if len(rs) >= 12 {
		return false
	}
	for _, r := range rs {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// repeatsUnit reports whether rs is one prefix of at most maxUnit runes repeated.
func repeatsUnit(rs []rune, maxUnit int) bool {
	for unit := 1; unit <= maxUnit && unit < len(rs); unit++ {
		if len(rs)%unit != 0 {
			continue
		}
		ok := true
		for i := unit; i < len(rs); i++ {
			if rs[i] != rs[i-unit] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// isStraightRun reports whether every rune steps by the same +1 or -1.
func isStraightRun(rs []rune) bool {
	if len(rs) < 3 {
		return false
	}
	step := rs[1] - rs[0]
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(rs); i++ {
		if rs[i]-rs[i-1] != step {
			return false
		}
	}
	return true
}
