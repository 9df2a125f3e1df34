// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/order"
)

var giftTmpl = template.Must(template.New("gift_delivery").Parse(giftTemplate))

// EmailService delivers gift codes to item recipients
type EmailService struct {
	config *config.Config
	client *http.Client
	logger logrus.FieldLogger
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger logrus.FieldLogger) *EmailService {
	return &EmailService{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "none", "":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("email delivery disabled, skipping")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// OrderCompleted sends one gift email per item that names a recipient.
// Every item is attempted; failures are joined.
func (s *EmailService) OrderCompleted(ctx context.Context, o *order.Order) error {
	var errs []error
	for i := range o.Items {
		item := &o.Items[i]
		if item.RecipientEmail == "" || len(item.Codes) == 0 {
			continue
		}

		email, err := s.giftEmail(o, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.SendEmail(ctx, email); err != nil {
			errs = append(errs, fmt.Errorf("failed to send gift for item %d: %w", item.ID, err))
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"order_id": o.ID,
			"item_id":  item.ID,
		}).Info("gift email sent")
	}
	return errors.Join(errs...)
}

func (s *EmailService) giftEmail(o *order.Order, item *order.Item) (*Email, error) {
	data := GiftEmailData{
		SiteName:      s.config.Company.Name,
		SiteURL:       s.config.Company.Website,
		SupportEmail:  s.config.Company.Email,
		RecipientName: item.RecipientName,
		SenderEmail:   o.Email,
		ProductName:   item.ProductName,
		Value:         item.Value.StringFixed(2),
		Currency:      o.Currency,
		Message:       item.GiftMessage,
		Year:          time.Now().Year(),
	}
	for _, c := range item.Codes {
		code := GiftCode{Code: c.Code, Serial: c.Serial}
		if c.ExpiresAt != nil {
			code.ExpiresAt = c.ExpiresAt.Format("January 2, 2006")
		}
		data.Codes = append(data.Codes, code)
	}

	var buf bytes.Buffer
	if err := giftTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template gift_delivery: %w", err)
	}

	return &Email{
		To:          []string{item.RecipientEmail},
		Subject:     fmt.Sprintf("You received a %s gift card", item.ProductName),
		HTMLContent: buf.String(),
		Type:        EmailTypeGiftDelivery,
	}, nil
}

func (s *EmailService) fromAddress() string {
	if s.config.Email.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	}
	return s.config.Email.FromEmail
}

// sendResendEmail sends email using the Resend API
func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	apiKey := s.config.Email.APIKey
	if apiKey == "" {
		return fmt.Errorf("resend API key not configured")
	}

	jsonData, err := json.Marshal(ResendEmailRequest{
		From:    s.fromAddress(),
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.config.Company.Email,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Email.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create Resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("resend API returned status %d", resp.StatusCode)
	}
	return nil
}

const giftTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello{{if .RecipientName}} {{.RecipientName}}{{end}},</p>
        <p>{{if .SenderEmail}}{{.SenderEmail}} sent you{{else}}You received{{end}} a {{.ProductName}} gift card worth {{.Value}} {{.Currency}}.</p>
        {{if .Message}}<blockquote style="border-left: 3px solid #ccc; padding-left: 10px; color: #555;">{{.Message}}</blockquote>{{end}}
        {{range .Codes}}
        <p style="font-family: 'Courier New', monospace; font-size: 18px; font-weight: bold;">{{.Code}}</p>
        <p style="font-size: 12px; color: #666;">{{if .Serial}}Serial {{.Serial}}{{end}}{{if .ExpiresAt}} &middot; valid until {{.ExpiresAt}}{{end}}</p>
        {{end}}
        <p>Questions? Contact {{.SupportEmail}}.</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}} &middot; {{.SiteURL}}</p>
    </div>
</body>
</html>`
