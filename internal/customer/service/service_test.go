package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/quotar/internal/customer/domain"
	"github.com/smallbiznis/quotar/internal/customer/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupCustomers(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return gdb, New(Params{DB: gdb, Log: zap.NewNop(), Repo: repository.Provide()})
}

func seedCustomers(t *testing.T, db *gorm.DB, n int) []domain.Customer {
	t.Helper()

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	customers := make([]domain.Customer, 0, n)
	for i := 0; i < n; i++ {
		c := domain.Customer{
			ID:          node.Generate(),
			CompanyName: fmt.Sprintf("Customer %d", i+1),
			Email:       fmt.Sprintf("c%d@example.test", i+1),
			Metadata:    datatypes.JSONMap{},
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
			UpdatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed customer: %v", err)
		}
		customers = append(customers, c)
	}
	return customers
}

func TestGetByID(t *testing.T) {
	db, svc := setupCustomers(t)
	seeded := seedCustomers(t, db, 1)
	ctx := context.Background()

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: seeded[0].ID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompanyName != "Customer 1" || got.Email != "c1@example.test" {
		t.Fatalf("got %+v", got)
	}

	if _, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: "garbage"}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidID)
	}
	if _, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: "98765"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestListPaginates(t *testing.T) {
	db, svc := setupCustomers(t)
	seedCustomers(t, db, 5)
	ctx := context.Background()

	page, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Customers) != 3 {
		t.Fatalf("page size = %d, want 3", len(page.Customers))
	}
	if !page.HasMore || page.NextPageToken == "" {
		t.Fatalf("expected another page, got has_more=%v token=%q", page.HasMore, page.NextPageToken)
	}
	// newest first
	if page.Customers[0].CompanyName != "Customer 5" {
		t.Fatalf("first row = %q, want Customer 5", page.Customers[0].CompanyName)
	}

	rest, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest.Customers) != 2 || rest.HasMore {
		t.Fatalf("page 2 = %d rows has_more=%v, want 2 rows final", len(rest.Customers), rest.HasMore)
	}
	if rest.Customers[1].CompanyName != "Customer 1" {
		t.Fatalf("last row = %q, want Customer 1", rest.Customers[1].CompanyName)
	}
}

func TestListFilters(t *testing.T) {
	db, svc := setupCustomers(t)
	seedCustomers(t, db, 3)
	ctx := context.Background()

	byEmail, err := svc.List(ctx, domain.ListCustomerRequest{Email: "c2@example.test"})
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(byEmail.Customers) != 1 || byEmail.Customers[0].CompanyName != "Customer 2" {
		t.Fatalf("email filter returned %+v", byEmail.Customers)
	}

	byName, err := svc.List(ctx, domain.ListCustomerRequest{CompanyName: "Customer 3"})
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if len(byName.Customers) != 1 || byName.Customers[0].Email != "c3@example.test" {
		t.Fatalf("name filter returned %+v", byName.Customers)
	}
}
