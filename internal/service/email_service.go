package service

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// ErrEmailDisabled is returned for mail that cannot be skipped while no sender is configured
var ErrEmailDisabled = errors.New("email service is not configured")

// SESClient is the subset of the SES v2 client used to send mail
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailConfig holds the sender settings for EmailService
type EmailConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
	Debug      bool
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     SESClient
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	log        zerolog.Logger
}

// NewEmailService creates a new email service. With no sender address the service
// is disabled and every send is logged and skipped.
func NewEmailService(ctx context.Context, cfg EmailConfig, logger zerolog.Logger) (*EmailService, error) {
	logger = logger.With().Str("component", "email").Logger()
	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	}

	if cfg.FromEmail == "" {
		logger.Info().Msg("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: cfg.Debug, log: logger}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info().Str("from", cfg.FromEmail).Str("region", cfg.AWSRegion).Msg("email service enabled")
	return NewEmailServiceWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewEmailServiceWithClient creates an enabled email service around an existing client
func NewEmailServiceWithClient(client SESClient, cfg EmailConfig, logger zerolog.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		enabled:    true,
		debug:      cfg.Debug,
		log:        logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendFamilyInvite emails an invite code for familyName to toEmail
func (s *EmailService) SendFamilyInvite(ctx context.Context, toEmail, inviterName, familyName, inviteCode string) error {
	if !s.enabled {
		s.log.Info().Str("to", toEmail).Msg("skipping family invite email (service disabled)")
		return nil
	}

	joinLink := fmt.Sprintf("%s/family/join?code=%s", s.appBaseURL, inviteCode)
	subject := fmt.Sprintf("%s invited you to join %s on FamilyHub", inviterName, familyName)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.code { font-size: 28px; letter-spacing: 4px; font-weight: bold; text-align: center; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Join %s</h1>
		<p>%s has invited you to join their family on FamilyHub.</p>
		<p>Enter this invite code in the app:</p>
		<p class="code">%s</p>
		<p>Or open <a href="%s">%s</a></p>
		<div class="footer">
			<p>This is an automated email from FamilyHub. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(familyName), html.EscapeString(inviterName), inviteCode, joinLink, joinLink)

	textBody := fmt.Sprintf(`%s has invited you to join %s on FamilyHub.

Invite code: %s

Join here: %s

---
This is an automated email from FamilyHub. Please do not reply.
`, inviterName, familyName, inviteCode, joinLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendSignupCode emails a signup verification code. With the service disabled the
// code is only logged when debug is on; otherwise ErrEmailDisabled is returned.
func (s *EmailService) SendSignupCode(ctx context.Context, toEmail, code string) error {
	if !s.enabled {
		if !s.debug {
			return ErrEmailDisabled
		}
		s.log.Warn().Str("to", toEmail).Str("code", code).Msg("email disabled, signup code logged instead")
		return nil
	}

	subject := "Your FamilyHub verification code"
	minutes := int(SignupCodeTTL.Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.code { font-size: 28px; letter-spacing: 4px; font-weight: bold; text-align: center; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Verify your email</h1>
		<p>Enter this code to finish creating your FamilyHub account:</p>
		<p class="code">%s</p>
		<p>The code expires in %d minutes. If you did not sign up, ignore this email.</p>
		<div class="footer">
			<p>This is an automated email from FamilyHub. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, code, minutes)

	textBody := fmt.Sprintf(`Your FamilyHub verification code is %s

The code expires in %d minutes. If you did not sign up, ignore this email.
`, code, minutes)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	s.log.Debug().Str("to", toEmail).Str("subject", subject).Int("html_bytes", len(htmlBody)).Msg("calling SES SendEmail")

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	event := s.log.Info().Str("to", toEmail).Str("subject", subject)
	if result != nil && result.MessageId != nil {
		event = event.Str("message_id", *result.MessageId)
	}
	event.Msg("email sent")
	return nil
}
