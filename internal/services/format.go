package services

import "regexp"

// coreCodePattern: two uppercase ASCII letters, four decimal digits (any
// script), one whitespace character, one or more ASCII alphanumerics,
// ":/", then one or more uppercase ASCII letters or digits.
//
// The separator class is the Unicode whitespace set: ASCII \t\n\v\f\r and
// space, the \x1c-\x1f separators, NEL, and every Z category rune (NBSP,
// ideographic space, line and paragraph separators).
var coreCodePattern = regexp.MustCompile(`[A-Z]{2}\p{Nd}{4}[\t\n\v\f\r \x{1c}-\x{1f}\x{85}\p{Z}][a-zA-Z0-9]+:/[A-Z0-9]+`)

// ExtractCoreCode returns the first core code embedded in content
func ExtractCoreCode(content string) (string, error) {
	match := coreCodePattern.FindString(content)
	if match == "" {
		return "", ErrInvalidFormat
	}
	return match, nil
}
