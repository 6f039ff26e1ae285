package email

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	TagPasswordReset     = "password-reset"
	TagEmailVerification = "email-verification"
)

// ResetData feeds the password reset template.
type ResetData struct {
	To          string
	DisplayName string
	ResetURL    string
	ValidFor    string
}

// VerificationData feeds the verification template.
type VerificationData struct {
	To          string
	DisplayName string
	Code        string
	ValidFor    string
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Hello,"
	}
	return "Hello " + name + ","
}

func resetBody(d ResetData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p>%s</p><p>We received a request to reset your password. The link below is valid for %s.</p><p><a href="%s">Reset your password</a></p><p>If you did not ask for this, you can ignore this email.</p>`,
			templ.EscapeString(greeting(d.DisplayName)),
			templ.EscapeString(d.ValidFor),
			templ.EscapeString(d.ResetURL),
		)
		return err
	})
}

func verificationBody(d VerificationData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p>%s</p><p>Your verification code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>The code is valid for %s.</p>`,
			templ.EscapeString(greeting(d.DisplayName)),
			templ.EscapeString(d.Code),
			templ.EscapeString(d.ValidFor),
		)
		return err
	})
}

// Render writes a component into a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ResetMessage renders the password reset email.
func ResetMessage(ctx context.Context, d ResetData) (Message, error) {
	html, err := Render(ctx, resetBody(d))
	if err != nil {
		return Message{}, fmt.Errorf("render reset email: %w", err)
	}
	return Message{
		To:       d.To,
		Subject:  "Reset your password",
		HTMLBody: html,
		TextBody: fmt.Sprintf("%s\n\nReset your password within %s:\n%s\n", greeting(d.DisplayName), d.ValidFor, d.ResetURL),
		Tag:      TagPasswordReset,
	}, nil
}

// VerificationMessage renders the email verification email.
func VerificationMessage(ctx context.Context, d VerificationData) (Message, error) {
	html, err := Render(ctx, verificationBody(d))
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}
	return Message{
		To:       d.To,
		Subject:  "Verify your email address",
		HTMLBody: html,
		TextBody: fmt.Sprintf("%s\n\nYour verification code is %s. It is valid for %s.\n", greeting(d.DisplayName), d.Code, d.ValidFor),
		Tag:      TagEmailVerification,
	}, nil
}
