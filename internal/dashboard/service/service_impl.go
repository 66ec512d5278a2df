package service

import (
	"context"

	"github.com/smallbiznis/quotar/internal/dashboard/domain"
	quotationdomain "github.com/smallbiznis/quotar/internal/quotation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentLimit = 5

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dashboard.service"),
	}
}

type summaryRow struct {
	TotalRevenue   int64 `gorm:"column:total_revenue"`
	QuotationCount int64 `gorm:"column:quotation_count"`
	CustomerCount  int64 `gorm:"column:customer_count"`
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	var row summaryRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) AS total_revenue,
		        COUNT(*) AS quotation_count,
		        COUNT(DISTINCT customer_id) AS customer_count
		 FROM quotations`,
	).Scan(&row).Error
	if err != nil {
		return domain.Summary{}, err
	}

	var recent []quotationdomain.Quotation
	err = s.db.WithContext(ctx).
		Model(&quotationdomain.Quotation{}).
		Preload("Customer").
		Order("created_at desc, id desc").
		Limit(recentLimit).
		Find(&recent).Error
	if err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		TotalRevenue:   row.TotalRevenue,
		QuotationCount: row.QuotationCount,
		CustomerCount:  row.CustomerCount,
		Recent:         recent,
	}, nil
}
