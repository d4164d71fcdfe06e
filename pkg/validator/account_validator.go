package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrInvalidName      = errors.New("invalid display name")
	ErrInvalidPIN       = errors.New("invalid pin")
)

const MaxNameLen = 100

type AccountValidator struct {
	pinRegex *regexp.Regexp
}

func NewAccountValidator() *AccountValidator {
	return &AccountValidator{
		pinRegex: regexp.MustCompile(`^[0-9]{4,6}$`),
	}
}

// ValidateProvision checks the inputs of a new account and reports every problem at once.
func (v *AccountValidator) ValidateProvision(id int64, name, pin string) error {
	var errs []error

	if id <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidAccountID, id))
	}

	if err := v.ValidateName(name); err != nil {
		errs = append(errs, err)
	}

	if err := v.ValidatePIN(pin); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (v *AccountValidator) ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLen)
	}
	return nil
}

func (v *AccountValidator) ValidatePIN(pin string) error {
	if !v.pinRegex.MatchString(pin) {
		return fmt.Errorf("%w: must be 4 to 6 digits", ErrInvalidPIN)
	}
	return nil
}
