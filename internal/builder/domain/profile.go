package domain

import (
	"regexp"
	"strings"
)

// ProfileField names an editable attribute of the draft profile.
type ProfileField string

const (
	FieldTitle       ProfileField = "title"
	FieldDescription ProfileField = "description"
	FieldBio         ProfileField = "bio"
	FieldUsername    ProfileField = "username"
	FieldTemplate    ProfileField = "template"
)

// ParseProfileField validates a field name coming off the wire.
func ParseProfileField(s string) (ProfileField, bool) {
	switch f := ProfileField(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldTitle, FieldDescription, FieldBio, FieldUsername, FieldTemplate:
		return f, true
	}
	return "", false
}

// Profile is the top-level draft form. Username doubles as the public slug.
type Profile struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Bio         string  `json:"bio"`
	Username    string  `json:"username"`
	TemplateID  *string `json:"templateId"`
}

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	requiredReason     = "required"
	usernameMinLen     = 3
	usernameTooShort   = "must be at least 3 characters"
	usernameBadCharset = "can only contain letters, numbers, hyphens, and underscores"
)

// Validate returns field name to message for every invalid field, or nil.
func (p Profile) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(p.Title) == "" {
		errs[string(FieldTitle)] = requiredReason
	}

	switch {
	case p.Username == "":
		errs[string(FieldUsername)] = requiredReason
	case len(p.Username) < usernameMinLen:
		errs[string(FieldUsername)] = usernameTooShort
	case !reUsername.MatchString(p.Username):
		errs[string(FieldUsername)] = usernameBadCharset
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// HasTemplate reports whether a template has been chosen.
func (p Profile) HasTemplate() bool {
	return p.TemplateID != nil && *p.TemplateID != ""
}
