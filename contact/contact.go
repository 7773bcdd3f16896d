// Package contact validates and forwards the site's contact form.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"itsite/models"
)

// Message keys returned in ValidationError.Fields. They double as i18n keys.
const (
	NameRequired    = "NameRequired"
	EmailRequired   = "EmailRequired"
	EmailInvalid    = "EmailInvalid"
	PhoneInvalid    = "PhoneInvalid"
	SubjectRequired = "SubjectRequired"
	MessageRequired = "MessageRequired"
	MessageTooLong  = "MessageTooLong"
)

const maxMessageLength = 5000

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,18}[0-9]$`)

// ValidationError lists the offending fields. It is never sent to the backend.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid contact form: %s", strings.Join(names, ", "))
}

// Normalize trims every field.
func Normalize(in models.ContactRequest) models.ContactRequest {
	return models.ContactRequest{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
	}
}

// Validate checks a normalized request and returns a *ValidationError when a field is unusable.
func Validate(in models.ContactRequest) error {
	errs := make(map[string]string)

	if in.Name == "" {
		errs["name"] = NameRequired
	}

	if in.Email == "" {
		errs["email"] = EmailRequired
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		errs["email"] = EmailInvalid
	}

	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		errs["phone"] = PhoneInvalid
	}

	if in.Subject == "" {
		errs["subject"] = SubjectRequired
	}

	switch {
	case in.Message == "":
		errs["message"] = MessageRequired
	case len(in.Message) > maxMessageLength:
		errs["message"] = MessageTooLong
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Sender delivers a contact request. backend.Client implements it.
type Sender interface {
	SubmitContact(ctx context.Context, in models.ContactRequest) (string, error)
}

type Service struct {
	sender Sender
	logger *slog.Logger
}

func NewService(sender Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sender: sender, logger: logger}
}

// Submit validates in and forwards it. Validation failures never reach the network.
func (s *Service) Submit(ctx context.Context, in models.ContactRequest) (string, error) {
	in = Normalize(in)
	if err := Validate(in); err != nil {
		return "", err
	}

	msg, err := s.sender.SubmitContact(ctx, in)
	if err != nil {
		s.logger.Warn("contact submission failed", "error", err)
		return "", err
	}
	s.logger.Info("contact submission accepted", "subject", in.Subject)
	return msg, nil
}
