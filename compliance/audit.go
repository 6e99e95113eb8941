package compliance

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxInitials caps the length of audit initials.
const MaxInitials = 3

// Initials turns a personnel name into the short form stored in CreatedBy
// and ModifiedBy. "Bevins, Nick" becomes "NB"; "nick.bevins" becomes "NB".
func Initials(name string) string {
	var parts []string
	if strings.Contains(name, ",") {
		pieces := strings.Split(name, ",")
		for i := len(pieces) - 1; i >= 0; i-- {
			parts = append(parts, strings.Fields(pieces[i])...)
		}
	} else {
		parts = strings.Fields(strings.NewReplacer(".", " ", "_", " ").Replace(name))
	}

	var b strings.Builder
	n := 0
	for _, p := range parts {
		if n == MaxInitials {
			break
		}
		r, _ := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		n++
	}
	return b.String()
}
