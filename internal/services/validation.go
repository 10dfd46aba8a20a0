package services

import (
	"strings"

	goa "goa.design/goa/v3/pkg"

	"algoforce/internal/domain"
	"algoforce/internal/otp"
	apperrors "algoforce/pkg/errors"
)

// E164Pattern matches a "+" followed by 11 to 15 digits, no leading zero
const E164Pattern = `^\+[1-9]\d{10,14}$`

const (
	maxNameLength    = 100
	maxFieldLength   = 200
	maxProblemLength = 5000
)

// validator collects goa field errors along with the message shown to callers
type validator struct {
	err      error
	messages []string
}

func (v *validator) check(err error, message string) bool {
	if err == nil {
		return true
	}
	v.err = goa.MergeErrors(v.err, err)
	v.messages = append(v.messages, message)
	return false
}

func (v *validator) required(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		return v.check(goa.MissingFieldError(field, "body"), message)
	}
	return true
}

func (v *validator) maxLength(field, value string, max int, message string) {
	if n := len([]rune(value)); n > max {
		v.check(goa.InvalidLengthError(field, value, n, max, false), message)
	}
}

func (v *validator) result() error {
	if v.err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrCodeValidation, strings.Join(v.messages, "; "), v.err)
}

// normalizeChannel trims the channel and lowercases email addresses
func normalizeChannel(kind domain.ChannelKind, channel string) string {
	channel = strings.TrimSpace(channel)
	if kind == domain.ChannelEmail {
		channel = strings.ToLower(channel)
	}
	return channel
}

func (v *validator) channel(kind domain.ChannelKind, channel string) {
	field := kind.Field()
	if kind == domain.ChannelEmail {
		if !v.required(field, channel, "Email is required") {
			return
		}
		v.check(goa.ValidateFormat(field, channel, goa.FormatEmail), "Valid email is required")
		return
	}
	if !v.required(field, channel, "Phone number is required") {
		return
	}
	v.check(goa.ValidatePattern(field, channel, E164Pattern),
		"Phone number must be in E.164 format (e.g., +12025551234)")
}

func (v *validator) code(code string) {
	if !v.required("otp", code, "OTP is required") {
		return
	}
	if !otp.ValidCode(code) {
		v.check(goa.InvalidPatternError("otp", code, `^\d{6}$`), "OTP must be 6 digits")
	}
}

func (v *validator) profile(p domain.Profile) {
	if v.required("name", p.Name, "Name is required") {
		v.maxLength("name", p.Name, maxNameLength, "Name must not exceed 100 characters")
	}
	if v.required("company", p.Company, "Company is required") {
		v.maxLength("company", p.Company, maxFieldLength, "Company must not exceed 200 characters")
	}
	if v.required("role", p.Role, "Role is required") {
		v.maxLength("role", p.Role, maxFieldLength, "Role must not exceed 200 characters")
	}
	if v.required("problem", p.Problem, "Problem description is required") {
		v.maxLength("problem", p.Problem, maxProblemLength, "Problem description must not exceed 5000 characters")
	}
	if !p.InquiryType.Valid() {
		allowed := make([]any, len(domain.InquiryTypes))
		for i, t := range domain.InquiryTypes {
			allowed[i] = string(t)
		}
		v.check(goa.InvalidEnumValueError("inquiryType", string(p.InquiryType), allowed),
			"Inquiry type must be one of demo, audit, enterprise or consultation")
	}
	if p.Email != "" {
		v.check(goa.ValidateFormat("email", p.Email, goa.FormatEmail), "Valid email is required")
	}
}

func validateStatus(status string) (domain.Status, error) {
	s := domain.Status(strings.ToLower(strings.TrimSpace(status)))
	if s.Valid() {
		return s, nil
	}
	var v validator
	if strings.TrimSpace(status) == "" {
		v.check(goa.MissingFieldError("status", "body"), "Status is required")
	} else {
		v.check(goa.InvalidEnumValueError("status", status, []any{string(domain.StatusPending), string(domain.StatusVerified)}),
			"Status must be pending or verified")
	}
	return "", v.result()
}
