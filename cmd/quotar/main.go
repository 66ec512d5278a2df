package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotar/internal/clock"
	"github.com/smallbiznis/quotar/internal/config"
	"github.com/smallbiznis/quotar/internal/customer"
	"github.com/smallbiznis/quotar/internal/dashboard"
	"github.com/smallbiznis/quotar/internal/migration"
	"github.com/smallbiznis/quotar/internal/observability"
	"github.com/smallbiznis/quotar/internal/providers"
	"github.com/smallbiznis/quotar/internal/quotation"
	"github.com/smallbiznis/quotar/internal/server"
	"github.com/smallbiznis/quotar/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		providers.Module,
		customer.Module,
		quotation.Module,
		dashboard.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
