// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

var voucherTmpl = template.Must(template.New("voucher").Funcs(template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("January 2, 2006")
	},
}).Parse(voucherTemplate))

// Service renders gift vouchers
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// VoucherData represents the data passed to the voucher template
type VoucherData struct {
	VoucherNumber string
	IssuedAt      string
	Order         *order.Order
	Company       CompanyInfo
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Email   string
	Website string
}

// GenerateVoucher renders the codes of a COMPLETED order. The order must
// already carry its revealed codes.
func (s *Service) GenerateVoucher(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.VoucherHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// VoucherHTML renders the HTML fed to wkhtmltopdf
func (s *Service) VoucherHTML(o *order.Order) (string, error) {
	if o.Status != order.StatusCompleted {
		return "", apperror.InvalidTransition("pdf.GenerateVoucher", "order %d is %s, vouchers exist only for completed orders", o.ID, o.Status)
	}

	issued := time.Now()
	if o.CompletedAt != nil {
		issued = *o.CompletedAt
	}
	data := VoucherData{
		VoucherNumber: fmt.Sprintf("VCH-%s", o.OrderNumber),
		IssuedAt:      issued.Format("January 2, 2006"),
		Order:         o,
		Company: CompanyInfo{
			Name:    s.config.Company.Name,
			Email:   s.config.Company.Email,
			Website: s.config.Company.Website,
		},
	}

	var buf bytes.Buffer
	if err := voucherTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const voucherTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Voucher {{.VoucherNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 24px; color: #222; }
        .header { display: flex; justify-content: space-between; border-bottom: 2px solid #333; padding-bottom: 12px; }
        .company { font-size: 22px; font-weight: bold; }
        .meta { text-align: right; font-size: 12px; }
        .item { margin-top: 24px; border: 1px solid #ccc; border-radius: 6px; padding: 12px; }
        .item h3 { margin: 0 0 6px 0; }
        .gift { font-style: italic; color: #555; margin: 6px 0; }
        table { width: 100%; border-collapse: collapse; margin-top: 8px; }
        th, td { border-bottom: 1px solid #eee; padding: 6px; text-align: left; font-size: 13px; }
        .code { font-family: "Courier New", monospace; font-size: 15px; font-weight: bold; letter-spacing: 1px; }
        .footer { margin-top: 32px; font-size: 11px; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <div class="company">{{.Company.Name}}</div>
        <div class="meta">
            <div><strong>{{.VoucherNumber}}</strong></div>
            <div>Order {{.Order.OrderNumber}}</div>
            <div>Issued {{.IssuedAt}}</div>
        </div>
    </div>

    {{range .Order.Items}}
    <div class="item">
        <h3>{{.ProductName}} &middot; {{.Value.StringFixed 2}} {{$.Order.Currency}}</h3>
        {{if .RecipientName}}<div>For {{.RecipientName}}</div>{{end}}
        {{if .GiftMessage}}<div class="gift">"{{.GiftMessage}}"</div>{{end}}
        <table>
            <tr><th>Code</th><th>Serial</th><th>Activation</th><th>Expires</th></tr>
            {{range .Codes}}
            <tr>
                <td class="code">{{.Code}}</td>
                <td>{{.Serial}}</td>
                <td>{{date .ActivatedAt}}</td>
                <td>{{date .ExpiresAt}}</td>
            </tr>
            {{end}}
        </table>
    </div>
    {{end}}

    <div class="footer">
        Keep these codes private. {{.Company.Name}} &middot; {{.Company.Email}} &middot; {{.Company.Website}}
    </div>
</body>
</html>
`
