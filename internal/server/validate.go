package server

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// validate carries the custom applicant-field rules. The same rules back both
// the standalone /validate-* endpoints and the switchboard form gate.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		ok, _ := ValidName(fl.Field().String())
		return ok
	}))
	must(v.RegisterValidation("deliverable_email", func(fl validator.FieldLevel) bool {
		ok, _ := ValidEmail(fl.Field().String())
		return ok
	}))
	must(v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		ok, _ := ValidPhone(fl.Field().String())
		return ok
	}))
	return v
}

// applicantForm is the identity portion of the switchboard form.
type applicantForm struct {
	Email     string `validate:"required,deliverable_email"`
	Phone     string `validate:"required,phone_digits"`
	FirstName string `validate:"required,person_name"`
	LastName  string `validate:"required,person_name"`
}

// fieldReason maps the first failed form field to a user-facing reason.
func fieldReason(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid input"
	}
	fe := verrs[0]
	value, _ := fe.Value().(string)
	switch fe.Field() {
	case "Email":
		_, reason := ValidEmail(value)
		return "email: " + reason
	case "Phone":
		_, reason := ValidPhone(value)
		return "phone: " + reason
	case "FirstName":
		_, reason := ValidName(value)
		return "firstName: " + reason
	case "LastName":
		_, reason := ValidName(value)
		return "lastName: " + reason
	}
	return "invalid input"
}

// ValidName accepts names made of Unicode letters, spaces, hyphens, and
// apostrophes, non-empty after trimming.
func ValidName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, "name is required"
	}
	letters := 0
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '-' || r == '\'':
		default:
			return false, "name contains invalid characters"
		}
	}
	if letters == 0 {
		return false, "name must contain letters"
	}
	return true, ""
}

var emailRe = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// blockedEmailDomains are throwaway domains that never reach a real inbox.
var blockedEmailDomains = map[string]bool{
	"test.com":       true,
	"example.com":    true,
	"fake.com":       true,
	"asdf.com":       true,
	"mailinator.com": true,
	"tempmail.com":   true,
	"throwaway.com":  true,
}

// ValidEmail checks shape and rejects known throwaway domains. Matching is
// case-insensitive.
func ValidEmail(email string) (bool, string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, "email is required"
	}
	if !emailRe.MatchString(email) {
		return false, "email address is not valid"
	}
	at := strings.LastIndex(email, "@")
	if blockedEmailDomains[email[at+1:]] {
		return false, "email domain is not accepted"
	}
	return true, ""
}

// ValidPhone requires 10 to 15 digits after stripping formatting.
func ValidPhone(phone string) (bool, string) {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '+' || r == '.':
		default:
			return false, "phone contains invalid characters"
		}
	}
	if digits < 10 {
		return false, "phone number is too short"
	}
	if digits > 15 {
		return false, "phone number is too long"
	}
	return true, ""
}
