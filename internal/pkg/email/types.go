// internal/pkg/email/types.go
package email

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeGiftDelivery EmailType = "gift_delivery"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// GiftEmailData is rendered into the gift delivery template
type GiftEmailData struct {
	SiteName      string
	SiteURL       string
	SupportEmail  string
	RecipientName string
	SenderEmail   string
	ProductName   string
	Value         string
	Currency      string
	Message       string
	Codes         []GiftCode
	Year          int
}

// GiftCode is one code listed in a gift email
type GiftCode struct {
	Code      string
	Serial    string
	ExpiresAt string
}

// Resend API structures
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}
