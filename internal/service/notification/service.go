package notification

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/pkg/logger"
)

// Sender is the outbound message surface the notifier needs.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// SMTPConfig holds the mail relay parameters for confirmation emails.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Service delivers POC notifications and user confirmation emails.
type Service struct {
	templates *TemplateStore
	sender    Sender
	smtp      SMTPConfig
	logger    *logger.Logger
}

func NewService(templates *TemplateStore, sender Sender, smtp SMTPConfig, log *logger.Logger) *Service {
	return &Service{
		templates: templates,
		sender:    sender,
		smtp:      smtp,
		logger:    log,
	}
}

// NotifyPOC messages the POC's own WhatsApp number with the rendered template.
// POCs opt in per record; without the bookedMessage preference nothing is sent
// and no error is raised.
func (s *Service) NotifyPOC(ctx context.Context, poc *model.POC, templateName string, values map[string]string) error {
	if poc == nil || !poc.Settings.BookedMessage {
		return nil
	}
	body, err := s.templates.RenderTemplate(ctx, poc.ClientID, templateName, values)
	if err != nil {
		return err
	}
	if err := s.sender.SendText(ctx, poc.ContactNumber, body); err != nil {
		s.logger.Error(err, "failed to notify poc", map[string]interface{}{
			"poc_id":   poc.ID,
			"template": templateName,
		})
		return err
	}
	return nil
}

// SendConfirmationEmail mails the rendered confirmation to the registered
// user. Users without an email on file are skipped silently.
func (s *Service) SendConfirmationEmail(ctx context.Context, client *model.Client, user *model.User, subject, body string) error {
	if user == nil || user.Email == nil || *user.Email == "" {
		return nil
	}
	if s.smtp.Host == "" {
		return nil
	}

	from := s.smtp.From
	if from == "" {
		from = client.Email
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", *user.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(s.smtp.Host, s.smtp.Port, s.smtp.Username, s.smtp.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		s.logger.Error(err, "failed to send confirmation email", map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}
