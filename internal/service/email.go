package service

import (
	"context"
	"fmt"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
)

// mailSender returns the HTTP status and body of the provider response.
type mailSender func(ctx context.Context, message *mail.SGMailV3) (int, string, error)

type emailService struct {
	fromEmail string
	fromName  string
	send      mailSender
}

// NewEmailService sends through SendGrid. Without an API key mail is only logged.
func NewEmailService(cfg config.EmailConfig) EmailService {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SendGrid API key not set, emails will be logged only")
		return &emailService{fromEmail: cfg.FromAddress, fromName: cfg.FromName, send: logOnlySender}
	}
	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	return &emailService{
		fromEmail: cfg.FromAddress,
		fromName:  cfg.FromName,
		send: func(ctx context.Context, message *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, message)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func logOnlySender(_ context.Context, message *mail.SGMailV3) (int, string, error) {
	logger.Info("Email not sent (no provider configured)", "subject", message.Subject)
	return 202, "", nil
}

func (s *emailService) sendEmail(ctx context.Context, to, toName, subject, body string) error {
	logger.ExternalServiceCall("SendGrid", "Send", "to", to, "subject", subject)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(toName, to), body, "")

	status, respBody, err := s.send(ctx, message)
	if err == nil && status >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", status, respBody)
	}
	logger.ExternalServiceResult("SendGrid", "Send", err, "status", status)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) SendOfferReceived(ctx context.Context, ownerEmail, ownerName, tenantName, propertyTitle string, rent decimal.Decimal) error {
	subject := fmt.Sprintf("New offer for %s", propertyTitle)
	body := fmt.Sprintf("Hello %s,\n\n%s has offered %s per month for %s.\n\nSign in to accept or reject the offer.\n\nThe RentChain Team",
		ownerName, tenantName, rent.String(), propertyTitle)
	return s.sendEmail(ctx, ownerEmail, ownerName, subject, body)
}

func (s *emailService) SendOfferDecision(ctx context.Context, tenantEmail, tenantName, propertyTitle string, status domain.OfferStatus) error {
	subject := fmt.Sprintf("Your offer for %s was %s", propertyTitle, lowerStatus(status))
	body := fmt.Sprintf("Hello %s,\n\nYour offer for %s is now %s.\n\nThe RentChain Team", tenantName, propertyTitle, status)
	return s.sendEmail(ctx, tenantEmail, tenantName, subject, body)
}

func (s *emailService) SendAgreementFinalized(ctx context.Context, email, name, propertyTitle string, a *domain.Agreement) error {
	subject := fmt.Sprintf("Rental agreement for %s is recorded", propertyTitle)
	body := fmt.Sprintf("Hello %s,\n\nThe rental agreement for %s runs from %s to %s at %s per month.\n\n"+
		"Document: %s\nTransaction: %s\n\nThe RentChain Team",
		name, propertyTitle, a.StartDate, a.EndDate, a.MonthlyRent.String(), a.ContentID, a.TxHash)
	return s.sendEmail(ctx, email, name, subject, body)
}

func lowerStatus(s domain.OfferStatus) string {
	switch s {
	case domain.OfferStatusAccepted:
		return "accepted"
	case domain.OfferStatusRejected:
		return "rejected"
	case domain.OfferStatusWithdrawn:
		return "withdrawn"
	}
	return "updated"
}
