package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func ValidateRegister(email, username, displayName, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Email
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	validateUsername(strings.TrimSpace(username), errs)

	// Optional; the username is used when empty.
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		validateDisplayName(displayName, errs)
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// NormalizeName trims and NFC-normalises a display string so visually equal
// names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func ValidateChannel(name, kind string, password *string) ValidationErrors {
	errs := make(ValidationErrors)

	validateChannelName(NormalizeName(name), errs)

	switch kind {
	case "PUBLIC":
	case "PROTECTED", "PRIVATE":
		if password == nil || *password == "" {
			errs.Add("password", "Password is required for this channel kind")
		} else {
			validateChannelPassword(*password, errs)
		}
	case "":
		errs.Add("kind", "Channel kind is required")
	default:
		errs.Add("kind", "Channel kind must be PUBLIC, PROTECTED or PRIVATE")
	}

	return errs
}

// ValidateChannelPatch checks the fields present in a partial update.
func ValidateChannelPatch(name, kind, password *string) ValidationErrors {
	errs := make(ValidationErrors)

	if name != nil {
		validateChannelName(NormalizeName(*name), errs)
	}
	if kind != nil {
		switch *kind {
		case "PUBLIC", "PROTECTED", "PRIVATE":
		default:
			errs.Add("kind", "Channel kind must be PUBLIC, PROTECTED or PRIVATE")
		}
	}
	if password != nil {
		validateChannelPassword(*password, errs)
	}

	return errs
}

func ValidateProfile(username, displayName *string) ValidationErrors {
	errs := make(ValidationErrors)

	if username != nil {
		validateUsername(strings.TrimSpace(*username), errs)
	}
	if displayName != nil {
		validateDisplayName(strings.TrimSpace(*displayName), errs)
	}

	return errs
}

func validateChannelName(name string, errs ValidationErrors) {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		errs.Add("name", "Channel name is required")
	case n < 2:
		errs.Add("name", "Channel name must be at least 2 characters")
	case n > 50:
		errs.Add("name", "Channel name is too long")
	}
}

func validateChannelPassword(password string, errs ValidationErrors) {
	if len(password) < 4 {
		errs.Add("password", "Channel password must be at least 4 characters")
	} else if len(password) > 72 {
		errs.Add("password", "Channel password is too long")
	}
}

func validateUsername(username string, errs ValidationErrors) {
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _ and -")
	}
}

func validateDisplayName(displayName string, errs ValidationErrors) {
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if len(displayName) < 2 {
		errs.Add("display_name", "Display name must be at least 2 characters")
	} else if len(displayName) > 100 {
		errs.Add("display_name", "Display name is too long")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
