package gallery

import (
	"fmt"
	"regexp"
)

var (
	publicIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// ValidatePublicID checks that id is usable as a deletion target.
func ValidatePublicID(id string) error {
	if !publicIDPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid public_id", ErrValidation)
	}
	return nil
}

// Validate checks that both parameters are present and all digits.
func (p Params) Validate() error {
	if !digitsPattern.MatchString(p.PID) {
		return fmt.Errorf("%w: pID must be a non-empty string of digits", ErrValidation)
	}
	if !digitsPattern.MatchString(p.Wnr) {
		return fmt.Errorf("%w: wnr must be a non-empty string of digits", ErrValidation)
	}
	return nil
}
