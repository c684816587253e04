// Package validation checks request payloads and reports problems as a
// field -> message map, the shape response.ValidationError expects.
package validation

import (
	"html"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasDigit   = regexp.MustCompile(`\d`)
	hasSpecial = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSpecials) + `]`)
)

const (
	UsernameMin = 3
	UsernameMax = 20
	PasswordMin = 8
	PasswordMax = 32

	// PasswordSpecials lists the characters that satisfy the special-character rule.
	PasswordSpecials = "@$!%*?&"
)

// Errors collects field problems. A nil map means the payload is valid.
type Errors map[string]string

func (e *Errors) add(field, msg string) {
	if *e == nil {
		*e = Errors{}
	}
	if _, exists := (*e)[field]; !exists {
		(*e)[field] = msg
	}
}

// Sanitize strips all HTML from free text and trims surrounding space. The
// policy escapes the text it keeps, so entities are decoded again and values
// are stored as typed. Decoding can surface new tags ("&lt;b&gt;"), hence the
// repeat until the value is stable.
func Sanitize(s string) string {
	for i := 0; i < 3; i++ {
		next := html.UnescapeString(strict.Sanitize(s))
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func Username(errs *Errors, field, v string) {
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		errs.add(field, field+" is required")
	case n < UsernameMin || n > UsernameMax:
		errs.add(field, "Username must be between 3 and 20 characters")
	}
}

func Email(errs *Errors, field, v string) {
	if v == "" {
		errs.add(field, field+" is required")
		return
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@"):], ".") {
		errs.add(field, "Invalid email address")
	}
}

func Password(errs *Errors, field, v string) {
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		errs.add(field, field+" is required")
	case n < PasswordMin || n > PasswordMax:
		errs.add(field, "Password must be between 8 and 32 characters")
	case !hasUpper.MatchString(v) || !hasLower.MatchString(v) || !hasDigit.MatchString(v) || !hasSpecial.MatchString(v):
		errs.add(field, "Password too weak.")
	}
}

func Required(errs *Errors, field, v string) {
	if strings.TrimSpace(v) == "" {
		errs.add(field, field+" is required")
	}
}

// Date accepts YYYY-MM-DD or RFC 3339 and returns the parsed time.
func Date(errs *Errors, field, v string) time.Time {
	if strings.TrimSpace(v) == "" {
		errs.add(field, field+" is required")
		return time.Time{}
	}
	t, err := ocr.ParseDate(v)
	if err != nil {
		errs.add(field, field+" must be a valid ISO 8601 date")
	}
	return t
}
