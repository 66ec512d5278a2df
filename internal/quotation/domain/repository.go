package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotar/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListQuotationFilter struct {
	Status      Status
	CustomerID  snowflake.ID
	Number      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Repository takes an explicit *gorm.DB so every write can join the
// caller's transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	InsertItems(ctx context.Context, db *gorm.DB, items []QuotationItem) error
	DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quotation, error)
	List(ctx context.Context, db *gorm.DB, filter ListQuotationFilter, page pagination.Pagination) ([]*Quotation, error)
	Update(ctx context.Context, db *gorm.DB, quotation *Quotation) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
