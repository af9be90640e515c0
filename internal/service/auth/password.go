package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a login password against the stored hash.
type PasswordVerifier interface {
	// Compare returns nil on a match and an error otherwise.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier checks bcrypt hashes, as written by the user stores.
type BcryptVerifier struct{}

// NewBcryptVerifier returns a BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier.
func (BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
