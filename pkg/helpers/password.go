package helpers

import "golang.org/x/crypto/bcrypt"

// passwordCost matches the work factor the original deployment used.
const passwordCost = 10

// HashPassword hashes the plain text password using bcrypt. A random salt is
// embedded in the result, so equal inputs produce different hashes.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with a plain password in constant time.
// A malformed hash simply reports false.
func CheckPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
