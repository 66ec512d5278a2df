package pdf

import (
	"context"
	"io"
)

// QuotationData carries preformatted display values. Every amount is a
// string rendered from the persisted integers; nothing here is
// recomputed from line items.
type QuotationData struct {
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CompanyPhone   string
	BankDetails    string

	QuotationNumber string
	IssueDate       string
	ValidUntil      string
	Salesperson     string
	PaymentMethod   string
	ShippingMethod  string

	CustomerName    string
	CustomerContact string
	CustomerAddress string
	CustomerEmail   string

	Items []QuotationItem

	Subtotal  string
	TaxLabel  string
	TaxAmount string
	Total     string

	Notes string
}

type QuotationItem struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}

type Provider interface {
	GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateQuotation(ctx context.Context, data QuotationData) (io.Reader, error) {
	return nil, nil
}
