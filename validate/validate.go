// Package validate checks and normalizes the user-facing strings that
// enter the engine through entity creation: mail addresses, passwords,
// person names, nicknames, and the names players give their games, teams
// and factories. Both halves are pure functions of the input: IsValid
// answers yes or no, Format returns the canonical form to store.
//
// Format does not imply validity; callers validate first, then format.
package validate

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind selects the rule set a string is checked against.
type Kind uint8

const (
	Mail Kind = iota
	Password
	FirstName
	LastName
	Nickname
	TeamName
	FactoryName
	GameName
)

const (
	passwordMinLen = 8
	passwordMaxLen = 128
	nameMaxRunes   = 50
	nicknameMin    = 3
	nicknameMax    = 24
	labelMaxRunes  = 64
)

// checker is validator/v10 behind the Mail rule. The instance caches its
// struct metadata internally and is safe for concurrent use.
var checker = validator.New()

// titler capitalizes person names without tying them to any locale.
var titler = cases.Title(language.Und)

// IsValid reports whether the string satisfies the rules of the kind.
//
// Example:
//
//	ok := validate.IsValid(validate.Mail, "a@b.com")
func IsValid(kind Kind, s string) bool {
	switch kind {
	case Mail:
		return checker.Var(strings.TrimSpace(s), "required,email") == nil
	case Password:
		return validPassword(s)
	case FirstName, LastName:
		return validPersonName(strings.TrimSpace(s))
	case Nickname:
		return validNickname(strings.TrimSpace(s))
	case TeamName, FactoryName, GameName:
		return validLabel(s)
	default:
		return false
	}
}

// Format returns the canonical stored form of the string: mail lowercased,
// person names title-cased, labels with collapsed inner whitespace.
// Passwords pass through untouched.
//
// Example:
//
//	mail := validate.Format(validate.Mail, " A@B.com ") // "a@b.com"
func Format(kind Kind, s string) string {
	switch kind {
	case Mail:
		return strings.ToLower(strings.TrimSpace(s))
	case Password:
		return s
	case FirstName, LastName:
		return titler.String(strings.ToLower(strings.TrimSpace(s)))
	case Nickname:
		return strings.TrimSpace(s)
	case TeamName, FactoryName, GameName:
		return strings.Join(strings.Fields(s), " ")
	default:
		return s
	}
}

// validPassword wants 8..128 bytes with at least one letter and one digit.
func validPassword(s string) bool {
	if len(s) < passwordMinLen || len(s) > passwordMaxLen {
		return false
	}

	var hasLetter, hasDigit bool

	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	return hasLetter && hasDigit
}

// validPersonName wants 1..50 letters with ' and - allowed inside.
func validPersonName(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || len(runes) > nameMaxRunes {
		return false
	}

	for i, r := range runes {
		if unicode.IsLetter(r) {
			continue
		}

		inner := i > 0 && i < len(runes)-1
		if inner && (r == '\'' || r == '-') {
			continue
		}

		return false
	}

	return true
}

// validNickname wants 3..24 of [A-Za-z0-9_-].
func validNickname(s string) bool {
	if len(s) < nicknameMin || len(s) > nicknameMax {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}

	return true
}

// validLabel wants 1..64 printable runes with no leading or trailing
// space.
func validLabel(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || len(runes) > labelMaxRunes {
		return false
	}

	if unicode.IsSpace(runes[0]) || unicode.IsSpace(runes[len(runes)-1]) {
		return false
	}

	for _, r := range runes {
		if !unicode.IsPrint(r) {
			return false
		}
	}

	return true
}
