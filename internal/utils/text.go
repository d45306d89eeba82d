package utils

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FixAccents repairs text whose UTF-8 bytes were decoded as Latin-1 upstream
// ("KÅ‘bÃ¡nya" style mojibake). Each rune is mapped back to its Latin-1 byte;
// if the bytes form valid UTF-8 the decoded string is returned. Text that
// holds runes outside Latin-1, or whose bytes are not UTF-8, is returned
// unchanged.
func FixAccents(s string) string {
	if s == "" || isASCII(s) {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(raw) {
		return s
	}
	return raw
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// TwoDigits zero-pads n to two digits.
func TwoDigits(n int) string {
	return fmt.Sprintf("%02d", n)
}
