package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// PresentationDNSName trims surrounding whitespace and a single trailing root
// dot. Case is preserved so the question echoes what the user typed.
func PresentationDNSName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, ".")
}

// ToASCII converts an internationalised name to its punycode form. Names that
// are already ASCII are returned untouched.
func ToASCII(name string) (string, error) {
	if isASCII(name) {
		return name, nil
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("cannot convert %q to ASCII: %w", name, err)
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
