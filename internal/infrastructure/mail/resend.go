package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config captures the Resend settings.
type Config struct {
	APIKey string
	From   string
	OTPTTL time.Duration
}

// ResendMailer delivers verification codes through the Resend API.
type ResendMailer struct {
	emails emailSender
	from   string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewResendMailer(cfg Config, log zerolog.Logger) *ResendMailer {
	client := resend.NewClient(cfg.APIKey)
	return &ResendMailer{emails: client.Emails, from: cfg.From, ttl: cfg.OTPTTL, log: log}
}

// SendOTP mails otp to email.
func (m *ResendMailer) SendOTP(ctx context.Context, email, otp string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Your verification code",
		Text:    otpText(otp, m.ttl),
		Html:    otpHTML(otp, m.ttl),
	}

	resp, err := m.emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	m.log.Debug().Str("email_id", resp.Id).Msg("otp email accepted")
	return nil
}

// LogMailer writes codes to the log instead of sending them. It is wired when
// no mail API key is configured, which only makes sense in development.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(_ context.Context, email, otp string) error {
	m.log.Warn().Str("email", email).Str("otp", otp).Msg("mail delivery disabled, otp logged")
	return nil
}

func otpText(otp string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", otp, minutes(ttl))
}

func otpHTML(otp string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Your verification code is</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>It expires in %d minutes.</p>`,
		otp, minutes(ttl),
	)
}

func minutes(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return int(ttl.Minutes())
}
