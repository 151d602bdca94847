package flows

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 5

// CredentialIssue names the first field that failed client-side validation.
type CredentialIssue struct {
	Field   string
	Message string
}

// ValidateCredentials checks email and password shape before any network call.
// It returns nil when both are acceptable.
func ValidateCredentials(email, password string) *CredentialIssue {
	if !emailPattern.MatchString(email) {
		return &CredentialIssue{Field: "email", Message: "must be a valid email address"}
	}
	return ValidatePassword(password)
}

// ValidatePassword requires minPasswordLength characters with at least one uppercase
// letter and one digit.
func ValidatePassword(password string) *CredentialIssue {
	if len([]rune(password)) < minPasswordLength {
		return &CredentialIssue{Field: "password", Message: "must be at least 5 characters"}
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return &CredentialIssue{Field: "password", Message: "must contain an uppercase letter"}
	}
	if !digit {
		return &CredentialIssue{Field: "password", Message: "must contain a digit"}
	}
	return nil
}

// ValidateProfile requires non-blank name and surname.
func ValidateProfile(name, surname string) *CredentialIssue {
	if strings.TrimSpace(name) == "" {
		return &CredentialIssue{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(surname) == "" {
		return &CredentialIssue{Field: "surname", Message: "is required"}
	}
	return nil
}
