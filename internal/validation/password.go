// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minPasswordLength = 12
	// bcrypt ignores anything past 72 bytes
	maxPasswordLength = 72
	passwordSpecials  = "@$!%*?&-_."
)

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&\-_.]+$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	verifyCodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// ValidatePassword checks if a password meets the account password policy:
// at least 12 characters drawn from letters, digits and @$!%*?&-_. with at
// least one of each class.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}
	if !passwordCharset.MatchString(password) {
		return fmt.Errorf("password may only contain letters, digits and the characters %s", passwordSpecials)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !hasSpecial {
		return fmt.Errorf("password must contain at least one special character (%s)", passwordSpecials)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateVerificationCode checks the 6-digit email verification code shape.
func ValidateVerificationCode(code string) error {
	if !verifyCodeRegex.MatchString(code) {
		return fmt.Errorf("verification code must be 6 digits")
	}
	return nil
}
