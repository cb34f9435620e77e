package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"retailsync/internal/platform/config"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks the single configured operator account.
type Authenticator struct {
	username     string
	passwordHash []byte
}

func NewAuthenticator(cfg config.AdminConfig) *Authenticator {
	return &Authenticator{username: cfg.Username, passwordHash: []byte(cfg.PasswordHash)}
}

func (a *Authenticator) Authenticate(username, password string) error {
	if len(a.passwordHash) == 0 {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
