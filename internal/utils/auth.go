package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

// NormalizeInput lowercases and trims free-form identity input.
func NormalizeInput(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeUserFields canonicalizes the identity fields on a signup payload.
// The password is left untouched.
func NormalizeUserFields(user *types.User) {
	user.Email = NormalizeInput(user.Email)
	user.FullName = strings.TrimSpace(user.FullName)
}

func ValidateSignup(user *types.User) error {
	if user == nil {
		return apierr.Validation("signup payload is required")
	}
	if user.Email == "" {
		return apierr.Validation("an email is required to sign up")
	}
	if !strings.Contains(user.Email, "@") {
		return apierr.Validation("email %q is not valid", user.Email)
	}
	if user.Password == "" {
		return apierr.Validation("a password is required to sign up")
	}
	if len(user.Password) < 8 {
		return apierr.Validation("password must be at least 8 characters")
	}
	return nil
}

func HashPassword(user *types.User) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return apierr.Internal(err)
	}
	user.Password = string(hashed)
	return nil
}
