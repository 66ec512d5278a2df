package domain

import (
	"context"

	quotationdomain "github.com/smallbiznis/quotar/internal/quotation/domain"
)

// Summary aggregates the persisted totals. Revenue stays in minor
// units; formatting belongs to the caller.
type Summary struct {
	TotalRevenue   int64                       `json:"total_revenue"`
	QuotationCount int64                       `json:"quotation_count"`
	CustomerCount  int64                       `json:"customer_count"`
	Recent         []quotationdomain.Quotation `json:"recent_quotations"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}
