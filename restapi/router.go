package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/restapi/modules/cves"
)

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, reader database.CVEReader, svc cves.SyncService, schema graphql.Schema, logger *zap.Logger) {
	// API Group /api/v1
	api := app.Group("/api/v1")

	api.Post("/graphql", GraphQLHandler(schema))

	// Sync control
	api.Post("/cves/sync", cves.PostSyncNow(svc))
	api.Post("/cves/sync/full", cves.PostFullSync(svc))
	api.Get("/cves/sync/status", cves.GetSyncStatus(svc))

	// CVE lookups
	api.Get("/cves", cves.ListCVEs(reader))
	api.Get("/cves/:id", cves.GetCVE(reader))

	logger.Info("API routes initialized successfully")
}
