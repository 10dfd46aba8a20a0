package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"algoforce/internal/config"
	"algoforce/internal/domain"
)

// sendMailFunc matches net/smtp.SendMail
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers verification codes over SMTP
type EmailSender struct {
	cfg      *config.EmailConfig
	validFor time.Duration
	sendMail sendMailFunc
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.EmailConfig, validFor time.Duration) *EmailSender {
	return &EmailSender{cfg: cfg, validFor: validFor, sendMail: smtp.SendMail}
}

// Channel reports that codes go to email addresses
func (s *EmailSender) Channel() domain.ChannelKind {
	return domain.ChannelEmail
}

// Send sends an OTP code via email
func (s *EmailSender) Send(ctx context.Context, to, code, name string) error {
	if !s.cfg.Enabled {
		// In development mode, just log
		log.Printf("[EMAIL] OTP would be sent to %s: %s", to, code)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	minutes := int(s.validFor.Minutes())
	subject := "Verify Your Contact Request - AlgoForce"
	htmlBody := otpEmailHTML(name, code, minutes)
	textBody := fmt.Sprintf(`Hello %s,

Thank you for contacting AlgoForce. Your verification code is: %s

This code will expire in %d minutes. Do not share it with anyone.
If you did not request this code, please ignore this email.

Best regards,
The AlgoForce Team
`, name, code, minutes)

	return s.SendHTMLEmail(to, subject, htmlBody, textBody)
}

// otpEmailHTML renders the verification email
func otpEmailHTML(name, code string, minutes int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AlgoForce Verification Code</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; line-height: 1.6; color: #333333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: #FFFFFF; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
            <h1 style="margin: 0;">AlgoForce</h1>
            <p style="margin: 4px 0 0;">Email Verification</p>
        </div>
        <div style="background: #F9F9F9; padding: 30px; border-radius: 0 0 10px 10px;">
            <h2 style="margin-top: 0;">Hello %s,</h2>
            <p>Thank you for contacting AlgoForce. To complete your request, please verify your email address using the code below:</p>
            <div style="background: #FFFFFF; border: 2px dashed #667eea; border-radius: 8px; padding: 20px; text-align: center; margin: 20px 0;">
                <p style="margin: 0; font-size: 14px; color: #666666;">Your One-Time Password</p>
                <div style="font-size: 32px; font-weight: bold; color: #667eea; letter-spacing: 8px;">%s</div>
            </div>
            <div style="background: #FFF3CD; border-left: 4px solid #FFC107; padding: 15px; margin: 20px 0;">
                <strong>Important:</strong>
                <ul style="margin: 10px 0 0 0;">
                    <li>This code will expire in <strong>%d minutes</strong></li>
                    <li>Do not share this code with anyone</li>
                    <li>If you didn't request this, please ignore this email</li>
                </ul>
            </div>
            <p style="margin-top: 30px;">Best regards,<br><strong>The AlgoForce Team</strong></p>
        </div>
        <div style="text-align: center; margin-top: 20px; color: #666666; font-size: 12px;">
            <p>&copy; %s AlgoForce. All rights reserved.</p>
            <p>This is an automated email. Please do not reply.</p>
        </div>
    </div>
</body>
</html>`, name, code, minutes, time.Now().Format("2006"))
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailSender) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		log.Printf("[EMAIL] Would send to %s: %s", to, subject)
		return nil
	}

	// Validate configuration
	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	message := s.buildMessage(to, subject, htmlBody, textBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.sendMail(addr, auth, s.fromAddress(), []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailSender) fromAddress() string {
	if s.cfg.FromEmail != "" {
		return s.cfg.FromEmail
	}
	return s.cfg.Username
}

// buildMessage assembles a multipart/alternative message
func (s *EmailSender) buildMessage(to, subject, htmlBody, textBody string) []byte {
	from := s.fromAddress()
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, from)
	}

	boundary := fmt.Sprintf("algoforce-%d", time.Now().UnixNano())

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(textBody + "\r\n")

	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		b.WriteString(htmlBody + "\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// IsEnabled returns whether email service is enabled
func (s *EmailSender) IsEnabled() bool {
	return s.cfg.Enabled
}
