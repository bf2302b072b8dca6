package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// EmailSender is the part of the resend e-mail service the notifier uses.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailNotifier mails failures to the shop administrator through Resend.
type EmailNotifier struct {
	sender    EmailSender
	logger    *zap.Logger
	fromEmail string
	toEmail   string
}

// NewEmailNotifier creates a Resend backed notifier.
func NewEmailNotifier(apiKey, fromEmail, toEmail string, logger *zap.Logger) *EmailNotifier {
	client := resend.NewClient(apiKey)
	return NewEmailNotifierWithSender(client.Emails, fromEmail, toEmail, logger)
}

// NewEmailNotifierWithSender creates a notifier on top of an existing sender.
func NewEmailNotifierWithSender(sender EmailSender, fromEmail, toEmail string, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{
		sender:    sender,
		logger:    logger,
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}
}

// Notify implements Notifier.
func (n *EmailNotifier) Notify(ctx context.Context, orderID int64, message string) error {
	if orderID == 0 {
		orderID = OrderIDFromMessage(message)
	}

	subject := "Fakturownia: błąd fakturowania"
	tags := []resend.Tag{{Name: "category", Value: "fakturownia_error"}}
	if orderID > 0 {
		subject = fmt.Sprintf("Fakturownia: błąd zamówienia #%d", orderID)
		tags = append(tags, resend.Tag{Name: "order_id", Value: strconv.FormatInt(orderID, 10)})
	}

	params := &resend.SendEmailRequest{
		From:    n.fromEmail,
		To:      []string{n.toEmail},
		Subject: subject,
		Html:    "<p>" + html.EscapeString(HistoryPrefix+message) + "</p>",
		Text:    HistoryPrefix + message,
		Headers: map[string]string{
			"X-Entity-Ref-ID": uuid.New().String(),
		},
		Tags: tags,
	}

	sent, err := n.sender.SendWithContext(ctx, params)
	if err != nil {
		n.logger.Error("failed to send admin notification",
			zap.Error(err),
			zap.Int64("order_id", orderID),
			zap.String("to", n.toEmail))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("admin notification sent",
		zap.String("email_id", sent.Id),
		zap.Int64("order_id", orderID))
	return nil
}
