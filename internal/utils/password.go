package utils

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// AdminCredentials is the single operator account configured through the
// environment.  An empty PasswordHash disables login.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

// Check reports whether user and password match the configured account.
// The bcrypt comparison runs even for an unknown user name.
func (a AdminCredentials) Check(user, password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(a.User), []byte(user)) == 1
	passOK := VerifyPassword(a.PasswordHash, password)
	return userOK && passOK
}
