package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotar/internal/quotation/domain"
	"github.com/smallbiznis/quotar/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quotations (id, quotation_number, customer_id, salesperson, issued_date, valid_until, shipping_date,
		   payment_method, shipping_method, subtotal_amount, tax_rate_units, tax_amount, other_fees, total_amount,
		   status, notes, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quotation.ID,
		quotation.QuotationNumber,
		quotation.CustomerID,
		quotation.Salesperson,
		quotation.IssuedDate,
		quotation.ValidUntil,
		quotation.ShippingDate,
		quotation.PaymentMethod,
		quotation.ShippingMethod,
		quotation.SubtotalAmount,
		quotation.TaxRateUnits,
		quotation.TaxAmount,
		quotation.OtherFees,
		quotation.TotalAmount,
		quotation.Status,
		quotation.Notes,
		quotation.Metadata,
		quotation.CreatedAt,
		quotation.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.QuotationItem) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO quotation_items (id, quotation_id, product_name, quantity, unit_price, taxable, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].QuotationID,
			items[i].ProductName,
			items[i].Quantity,
			items[i].UnitPrice,
			items[i].Taxable,
			items[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM quotation_items WHERE quotation_id = ?`,
		quotationID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		Where("id = ?", id).
		Limit(1).
		Find(&quotation).Error
	if err != nil {
		return nil, err
	}
	if quotation.ID == 0 {
		return nil, nil
	}
	return &quotation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListQuotationFilter, page pagination.Pagination) ([]*domain.Quotation, error) {
	var quotations []*domain.Quotation
	stmt := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Preload("Customer")
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Number != "" {
		stmt = stmt.Where("quotation_number = ?", filter.Number)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		cursorAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursorAt, cursorAt, cursorID)
	}
	if page.PageSize > 0 {
		// one extra row to detect whether another page exists
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&quotations).Error
	if err != nil {
		return nil, err
	}
	return quotations, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotations
		 SET salesperson = ?, issued_date = ?, valid_until = ?, shipping_date = ?,
		   payment_method = ?, shipping_method = ?, subtotal_amount = ?, tax_rate_units = ?,
		   tax_amount = ?, other_fees = ?, total_amount = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		quotation.Salesperson,
		quotation.IssuedDate,
		quotation.ValidUntil,
		quotation.ShippingDate,
		quotation.PaymentMethod,
		quotation.ShippingMethod,
		quotation.SubtotalAmount,
		quotation.TaxRateUnits,
		quotation.TaxAmount,
		quotation.OtherFees,
		quotation.TotalAmount,
		quotation.Notes,
		quotation.UpdatedAt,
		quotation.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM quotations WHERE id = ?`,
		id,
	).Error
}
