package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/quotar/pkg/db/pagination"
)

// CustomerInput carries the customer block of the quotation form.
type CustomerInput struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	VATNumber     string `json:"vat_number"`
}

// ItemInput carries one line of the quotation form. UnitPrice and the
// money fields below arrive in major units and are converted to minor
// units exactly once at the service boundary.
type ItemInput struct {
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Taxable     *bool   `json:"is_taxable,omitempty"`
}

type CreateQuotationRequest struct {
	Customer       CustomerInput `json:"customer"`
	Salesperson    string        `json:"salesperson"`
	IssuedDate     *time.Time    `json:"issued_date,omitempty"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	ShippingDate   *time.Time    `json:"shipping_date,omitempty"`
	PaymentMethod  string        `json:"payment_method"`
	ShippingMethod string        `json:"shipping_method"`
	TaxRatePercent *float64      `json:"tax_rate,omitempty"`
	OtherFees      float64       `json:"other_fees"`
	Notes          string        `json:"notes"`
	Items          []ItemInput   `json:"items"`
}

type UpdateQuotationRequest struct {
	ID             string        `json:"-"`
	Customer       CustomerInput `json:"customer"`
	Salesperson    string        `json:"salesperson"`
	IssuedDate     *time.Time    `json:"issued_date,omitempty"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	ShippingDate   *time.Time    `json:"shipping_date,omitempty"`
	PaymentMethod  string        `json:"payment_method"`
	ShippingMethod string        `json:"shipping_method"`
	TaxRatePercent *float64      `json:"tax_rate,omitempty"`
	OtherFees      float64       `json:"other_fees"`
	Notes          string        `json:"notes"`
	Items          []ItemInput   `json:"items"`
}

type GetQuotationRequest struct {
	ID string
}

type DeleteQuotationRequest struct {
	ID string
}

type ListQuotationRequest struct {
	PageToken   string
	PageSize    int
	Status      string
	CustomerID  string
	Number      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListQuotationResponse struct {
	pagination.PageInfo
	Quotations []Quotation `json:"quotations"`
}

type UpdateStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type SendQuotationRequest struct {
	ID      string `json:"-"`
	To      string `json:"to,omitempty"`
	Message string `json:"message,omitempty"`
}

// RenderedPDF carries the generated document together with the
// quotation number so callers can name the file without reloading the
// quotation.
type RenderedPDF struct {
	QuotationNumber string
	Document        []byte
}

type Service interface {
	Create(context.Context, CreateQuotationRequest) (Quotation, error)
	Get(context.Context, GetQuotationRequest) (Quotation, error)
	List(context.Context, ListQuotationRequest) (ListQuotationResponse, error)
	Update(context.Context, UpdateQuotationRequest) (Quotation, error)
	Delete(context.Context, DeleteQuotationRequest) error
	UpdateStatus(context.Context, UpdateStatusRequest) (Quotation, error)
	RenderPDF(context.Context, GetQuotationRequest) (RenderedPDF, error)
	Send(context.Context, SendQuotationRequest) (Quotation, error)
}
