// Package api builds the Fiber application serving the REST and GraphQL routes.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/graphql"
	"github.com/ortelius/pdvd-cvesync/internal/ingest"
	"github.com/ortelius/pdvd-cvesync/restapi"
)

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes
func NewFiberApp(reader database.CVEReader, svc *ingest.Service, tracker *ingest.Tracker, log *zap.Logger) (*fiber.App, error) {
	schema, err := graphql.CreateSchema(reader, svc, tracker)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:     "pdvd-cvesync API v1.0",
		BodyLimit:   4 * 1024 * 1024,
		ReadTimeout: 60 * time.Second,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("graphql_op", "-")
		return c.Next()
	})
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${locals:graphql_op}\n",
	}))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	restapi.SetupRoutes(app, reader, svc, schema, log)

	return app, nil
}
