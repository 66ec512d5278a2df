package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	"github.com/smallbiznis/quotar/internal/dashboard/domain"
	quotationdomain "github.com/smallbiznis/quotar/internal/quotation/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDashboard(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := gdb.AutoMigrate(&customerdomain.Customer{}, &quotationdomain.Quotation{}, &quotationdomain.QuotationItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return gdb, New(Params{DB: gdb, Log: zap.NewNop()})
}

func seedQuotation(t *testing.T, db *gorm.DB, node *snowflake.Node, customerID snowflake.ID, number string, total int64, at time.Time) {
	t.Helper()
	q := quotationdomain.Quotation{
		ID:              node.Generate(),
		QuotationNumber: number,
		CustomerID:      customerID,
		IssuedDate:      at,
		SubtotalAmount:  total,
		TaxRateUnits:    500,
		TotalAmount:     total,
		Status:          quotationdomain.StatusDraft,
		Metadata:        datatypes.JSONMap{},
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quotation %s: %v", number, err)
	}
}

func TestSummaryEmptyDatabase(t *testing.T) {
	_, svc := setupDashboard(t)

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRevenue != 0 || summary.QuotationCount != 0 || summary.CustomerCount != 0 {
		t.Fatalf("summary = %+v, want zeros", summary)
	}
	if len(summary.Recent) != 0 {
		t.Fatalf("recent = %d, want 0", len(summary.Recent))
	}
}

func TestSummaryAggregates(t *testing.T) {
	db, svc := setupDashboard(t)

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	customers := make([]snowflake.ID, 2)
	for i := range customers {
		c := customerdomain.Customer{
			ID:          node.Generate(),
			CompanyName: fmt.Sprintf("Customer %d", i+1),
			Email:       fmt.Sprintf("c%d@example.test", i+1),
			Metadata:    datatypes.JSONMap{},
		}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed customer: %v", err)
		}
		customers[i] = c.ID
	}

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		customerID := customers[i%2]
		seedQuotation(t, db, node, customerID, fmt.Sprintf("QT-20240315-%03d", i+1), 1000, base.Add(time.Duration(i)*time.Minute))
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalRevenue != 7000 {
		t.Fatalf("total revenue = %d, want 7000", summary.TotalRevenue)
	}
	if summary.QuotationCount != 7 {
		t.Fatalf("quotation count = %d, want 7", summary.QuotationCount)
	}
	if summary.CustomerCount != 2 {
		t.Fatalf("customer count = %d, want 2", summary.CustomerCount)
	}
	if len(summary.Recent) != 5 {
		t.Fatalf("recent = %d, want 5", len(summary.Recent))
	}
	if summary.Recent[0].QuotationNumber != "QT-20240315-007" {
		t.Fatalf("recent[0] = %q, want QT-20240315-007", summary.Recent[0].QuotationNumber)
	}
	if summary.Recent[0].Customer == nil {
		t.Fatal("recent quotation missing preloaded customer")
	}
}
