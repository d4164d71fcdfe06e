package validator

import (
	"errors"
	"strings"
	"testing"
)

func TestAccountValidator_ValidProvision(t *testing.T) {
	v := NewAccountValidator()

	err := v.ValidateProvision(180903, "Sara", "1234")

	if err != nil {
		t.Fatalf("expected valid account, got err=%v", err)
	}
}

func TestAccountValidator_InvalidID(t *testing.T) {
	v := NewAccountValidator()

	err := v.ValidateProvision(0, "Sara", "1234")

	if !errors.Is(err, ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
}

func TestAccountValidator_InvalidName(t *testing.T) {
	v := NewAccountValidator()

	if err := v.ValidateName("   "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for blank name, got %v", err)
	}
	if err := v.ValidateName(strings.Repeat("a", MaxNameLen+1)); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for long name, got %v", err)
	}
}

func TestAccountValidator_InvalidPIN(t *testing.T) {
	v := NewAccountValidator()

	for _, pin := range []string{"", "123", "1234567", "12a4", " 1234"} {
		if err := v.ValidatePIN(pin); !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("pin %q: expected ErrInvalidPIN, got %v", pin, err)
		}
	}
}

func TestAccountValidator_ReportsAllProblems(t *testing.T) {
	v := NewAccountValidator()

	err := v.ValidateProvision(-1, "", "x")

	if !errors.Is(err, ErrInvalidAccountID) || !errors.Is(err, ErrInvalidName) || !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected all three errors, got %v", err)
	}
}
