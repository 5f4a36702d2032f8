package fakeidp

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is a realm account.
type User struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Groups        []string
	Disabled      bool

	passwordHash string
}

// Name is the display name Keycloak derives from first and last name.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// hashPassword uses the minimum bcrypt cost; the realm only ever holds test
// accounts.
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func (u *User) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}
