package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid request")

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	rollNumberRe = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)
	specialChars = `!@#$%^&*(),.?":{}|<>`
)

// Error lists every failed rule of one request.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Invalid builds an *Error from problems, or nil when there are none.
func Invalid(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &Error{Problems: problems}
}

// Validator checks request structs. Besides the stock tags it knows
// campus_email, roll_number and password.
type Validator struct {
	v       *validator.Validate
	domains []string
}

// New builds a Validator accepting emails under the given domain suffixes
// (e.g. "@smail.iitm.ac.in").
func New(emailDomains []string) *Validator {
	x := &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
	for _, d := range emailDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !strings.HasPrefix(d, "@") {
			d = "@" + d
		}
		x.domains = append(x.domains, d)
	}

	x.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = x.v.RegisterValidation("campus_email", func(fl validator.FieldLevel) bool {
		return x.CampusEmail(fl.Field().String())
	})
	_ = x.v.RegisterValidation("roll_number", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeRollNumber(fl.Field().String())
		return ok
	})
	_ = x.v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	})
	return x
}

// Struct validates s and returns an *Error naming each failed field.
func (x *Validator) Struct(s any) error {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &Error{Problems: problems}
}

// CampusEmail reports whether email ends with an accepted campus domain.
func (x *Validator) CampusEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	for _, d := range x.domains {
		// the leading "@" keeps "@iitm.ac.in" from matching "@smail.iitm.ac.in"
		if strings.HasSuffix(email, d) {
			return true
		}
	}
	return false
}

// PasswordProblems returns every unmet password rule, empty when none.
func PasswordProblems(pw string) []string {
	var problems []string
	if len(pw) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	if !upper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "password must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "password must contain a number")
	}
	if !special {
		problems = append(problems, "password must contain a special character")
	}
	return problems
}

// NormalizeRollNumber strips all whitespace from s. ok is false unless the
// result is 3 to 20 letters and digits.
func NormalizeRollNumber(s string) (string, bool) {
	s = strings.Join(strings.Fields(s), "")
	return s, rollNumberRe.MatchString(s)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "campus_email":
		return field + " must be a campus email address"
	case "roll_number":
		return field + " must be 3-20 letters and digits"
	case "password":
		return strings.Join(PasswordProblems(fmt.Sprint(fe.Value())), "; ")
	case "url":
		return field + " must be a URL"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
