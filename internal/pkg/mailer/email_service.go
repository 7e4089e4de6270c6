// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"
	"time"

	"planhub-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendDownloadLink(toEmail, name, planName, link string, expiresAt time.Time) error
	SendPurchaseReceipt(toEmail, name, planName, orderID string, amount float64, currency, deliverables string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) newMessage(toEmail, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(kind, toEmail string, m *gomail.Message) error {
	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send "+kind, map[string]interface{}{"to": toEmail, "error": err.Error()})
		return err
	}
	s.logger.Info("MAILER", kind+" sent", map[string]interface{}{"to": toEmail})
	return nil
}

func (s *emailService) SendDownloadLink(toEmail, name, planName, link string, expiresAt time.Time) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your files for %s are ready</h2>
			<p>Hi %s,</p>
			<p>Use the button below to download your plan package. The link works once.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Download</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>Valid until %s.</p>
		</div>
	`, html.EscapeString(planName), html.EscapeString(name), link, link, expiresAt.UTC().Format("02 Jan 2006"))

	return s.send("download link", toEmail, s.newMessage(toEmail, "Your download link for "+planName, body))
}

func (s *emailService) SendPurchaseReceipt(toEmail, name, planName, orderID string, amount float64, currency, deliverables string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thank you for your purchase</h2>
			<p>Hi %s,</p>
			<table style="border-collapse: collapse;">
				<tr><td style="padding: 4px 12px 4px 0;">Order</td><td>%s</td></tr>
				<tr><td style="padding: 4px 12px 4px 0;">Plan</td><td>%s</td></tr>
				<tr><td style="padding: 4px 12px 4px 0;">Includes</td><td>%s</td></tr>
				<tr><td style="padding: 4px 12px 4px 0;">Amount</td><td>%s %.2f</td></tr>
			</table>
			<p>You can request a download link from your purchases page.</p>
		</div>
	`, html.EscapeString(name), orderID, html.EscapeString(planName), html.EscapeString(deliverables), currency, amount)

	return s.send("purchase receipt", toEmail, s.newMessage(toEmail, "Receipt "+orderID, body))
}

// noopEmailService is used when SMTP is not configured.
type noopEmailService struct {
	logger logger.ILogger
}

func NewNoopEmailService(log logger.ILogger) IEmailService {
	return &noopEmailService{logger: log}
}

func (s *noopEmailService) SendDownloadLink(toEmail, name, planName, link string, expiresAt time.Time) error {
	s.logger.Debug("MAILER", "SMTP disabled, download link not mailed", map[string]interface{}{"to": toEmail})
	return nil
}

func (s *noopEmailService) SendPurchaseReceipt(toEmail, name, planName, orderID string, amount float64, currency, deliverables string) error {
	s.logger.Debug("MAILER", "SMTP disabled, receipt not mailed", map[string]interface{}{"to": toEmail, "order_id": orderID})
	return nil
}
