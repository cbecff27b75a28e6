package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabled(t *testing.T) {
	svc, err := NewEmailService(context.Background(), EmailConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if svc.IsEnabled() {
		t.Fatal("service without sender should be disabled")
	}
	if err := svc.SendFamilyInvite(context.Background(), "a@example.com", "Ann", "Smiths", "ABCD1234"); err != nil {
		t.Errorf("disabled SendFamilyInvite() error = %v", err)
	}
}

func TestEmailServiceSendFamilyInvite(t *testing.T) {
	client := &fakeSES{}
	svc := NewEmailServiceWithClient(client, EmailConfig{
		FromEmail:  "noreply@example.com",
		FromName:   "FamilyHub",
		AppBaseURL: "https://familyhub.test",
	}, zerolog.Nop())

	err := svc.SendFamilyInvite(context.Background(), "bob@example.com", "Ann", "<The Smiths>", "ABCD1234")
	if err != nil {
		t.Fatalf("SendFamilyInvite() error = %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("SendEmail called %d times", len(client.inputs))
	}

	in := client.inputs[0]
	if got := aws.ToString(in.FromEmailAddress); got != "FamilyHub <noreply@example.com>" {
		t.Errorf("from = %q", got)
	}
	if in.Destination.ToAddresses[0] != "bob@example.com" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	html := aws.ToString(in.Content.Simple.Body.Html.Data)
	if !strings.Contains(html, "ABCD1234") || !strings.Contains(html, "&lt;The Smiths&gt;") {
		t.Errorf("html body missing code or escaping: %s", html)
	}
	text := aws.ToString(in.Content.Simple.Body.Text.Data)
	if !strings.Contains(text, "https://familyhub.test/family/join?code=ABCD1234") {
		t.Errorf("text body missing join link: %s", text)
	}

	client.err = errors.New("throttled")
	if err := svc.SendFamilyInvite(context.Background(), "bob@example.com", "Ann", "Smiths", "ABCD1234"); err == nil {
		t.Error("SendFamilyInvite() should surface SES errors")
	}
}

func TestEmailServiceSendSignupCode(t *testing.T) {
	client := &fakeSES{}
	svc := NewEmailServiceWithClient(client, EmailConfig{FromEmail: "noreply@example.com"}, zerolog.Nop())

	if err := svc.SendSignupCode(context.Background(), "ann@example.com", "042917"); err != nil {
		t.Fatalf("SendSignupCode() error = %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("SendEmail called %d times", len(client.inputs))
	}
	if text := aws.ToString(client.inputs[0].Content.Simple.Body.Text.Data); !strings.Contains(text, "042917") {
		t.Errorf("text body missing code: %s", text)
	}

	disabled, _ := NewEmailService(context.Background(), EmailConfig{}, zerolog.Nop())
	if err := disabled.SendSignupCode(context.Background(), "ann@example.com", "042917"); !errors.Is(err, ErrEmailDisabled) {
		t.Errorf("disabled SendSignupCode() error = %v, want ErrEmailDisabled", err)
	}

	debug, _ := NewEmailService(context.Background(), EmailConfig{Debug: true}, zerolog.Nop())
	if err := debug.SendSignupCode(context.Background(), "ann@example.com", "042917"); err != nil {
		t.Errorf("debug SendSignupCode() error = %v, want nil", err)
	}
}
