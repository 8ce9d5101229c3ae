package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Input limits
const (
	MaxProjectNameLength  = 100
	MaxDescriptionLength  = 500
	MaxCommentLength      = 2000
	MaxScreenNameLength   = 60
	MaxTemplateNameLength = 100
)

var (
	ErrEmptyName   = errors.New("name is required")
	ErrInvalidMail = errors.New("invalid email address")
)

// ValidateProjectName trims and checks a project name
func ValidateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return "", fmt.Errorf("name must be at most %d characters", MaxProjectNameLength)
	}
	return name, nil
}

// ValidateDescription trims and checks a project description
func ValidateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", fmt.Errorf("description must be at most %d characters", MaxDescriptionLength)
	}
	return desc, nil
}

// ValidateEmail checks that s is a bare email address and returns it lowercased
func ValidateEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@")+1:], ".") {
		return "", ErrInvalidMail
	}
	return strings.ToLower(s), nil
}

// ValidateScreenName trims and checks a screen name
func ValidateScreenName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxScreenNameLength {
		return "", fmt.Errorf("screen name must be at most %d characters", MaxScreenNameLength)
	}
	return name, nil
}
