package conversation

import "regexp"

var (
	idPattern = regexp.MustCompile(`^\d+$`)
	// Deliberately loose: the reservation endpoint does its own checking
	// and the address is only used for the emailed copy of the voucher.
	emailPattern = regexp.MustCompile(`.+@.+`)
)

// ValidID reports whether the input is an acceptable identity number:
// digits only, at least one.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidEmail reports whether the input looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
