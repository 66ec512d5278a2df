package migration

import (
	"github.com/smallbiznis/quotar/internal/config"
	customerdomain "github.com/smallbiznis/quotar/internal/customer/domain"
	quotationdomain "github.com/smallbiznis/quotar/internal/quotation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite and mysql rely on the model definitions; the unique
		// index on quotation_number comes from the gorm tags.
		return conn.AutoMigrate(
			&customerdomain.Customer{},
			&quotationdomain.Quotation{},
			&quotationdomain.QuotationItem{},
		)
	}),
)
