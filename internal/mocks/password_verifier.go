package mocks

import "errors"

// ErrPasswordMismatch is returned by MockPasswordVerifier when Match is false.
var ErrPasswordMismatch = errors.New("password mismatch")

// MockPasswordVerifier implements auth.PasswordVerifier.
type MockPasswordVerifier struct {
	// Match decides the outcome when CompareFn is nil.
	Match bool

	CompareFn func(hashedPassword, password string) error

	// Calls counts Compare invocations.
	Calls int
}

// Compare implements auth.PasswordVerifier.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.Calls++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.Match {
		return nil
	}
	return ErrPasswordMismatch
}
