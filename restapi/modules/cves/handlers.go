// Package cves implements the REST API handlers for CVE sync control and CVE lookups.
package cves

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/internal/ingest"
	"github.com/ortelius/pdvd-cvesync/model"
)

// SyncService is the subset of *ingest.Service the handlers call
type SyncService interface {
	Run(ctx context.Context, mode model.SyncMode, trigger string) (model.SyncSummary, error)
	Status(ctx context.Context) model.SyncStatus
}

// PostSyncNow runs an incremental sync and waits for it to finish
func PostSyncNow(svc SyncService) fiber.Handler {
	return runSync(svc, model.SyncModeIncremental)
}

// PostFullSync runs a full sync and waits for it to finish
func PostFullSync(svc SyncService) fiber.Handler {
	return runSync(svc, model.SyncModeFull)
}

func runSync(svc SyncService, mode model.SyncMode) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := svc.Run(c.UserContext(), mode, "api")
		if err == nil {
			return c.JSON(SyncResponse{
				Success: true,
				Message: "CVE sync completed",
				Summary: summary,
			})
		}

		status := fiber.StatusInternalServerError
		message := "CVE sync failed"
		switch {
		case errors.Is(err, ingest.ErrSyncInProgress):
			status = fiber.StatusConflict
			message = "CVE sync already in progress"
		case errors.Is(err, ingest.ErrFetchFailed):
			status = fiber.StatusBadGateway
			message = "Failed to fetch CVEs from NVD"
		case errors.Is(err, ingest.ErrWriteFailed):
			message = "Failed to store CVEs"
		}

		return c.Status(status).JSON(SyncResponse{
			Success: false,
			Message: message,
			Error:   err.Error(),
			Summary: summary,
		})
	}
}

// GetSyncStatus reports whether a sync is running and how the last one ended
func GetSyncStatus(svc SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(svc.Status(c.UserContext()))
	}
}

// ListCVEs returns a page of stored CVEs without their raw payload
func ListCVEs(reader database.CVEReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := database.ListOptions{
			Offset:     c.QueryInt("offset", 0),
			Limit:      c.QueryInt("limit", 100),
			SortField:  c.Query("sort", "cve_id"),
			Descending: strings.EqualFold(c.Query("order"), "desc"),
		}.Normalize()

		ctx := c.UserContext()
		total, err := reader.CountCVEs(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to count CVEs: " + err.Error(),
			})
		}

		records, err := reader.ListCVEs(ctx, opts)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to list CVEs: " + err.Error(),
			})
		}
		if records == nil {
			records = []model.CVERecord{}
		}

		return c.JSON(ListResponse{
			Total:  total,
			Offset: opts.Offset,
			Limit:  opts.Limit,
			Sort:   opts.SortField,
			Items:  records,
		})
	}
}

// GetCVE returns one stored CVE including its raw payload
func GetCVE(reader database.CVEReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			id = c.Params("id")
		}

		record, err := reader.GetCVE(c.UserContext(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to read CVE: " + err.Error(),
			})
		}
		if record == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "CVE not found: " + id,
			})
		}
		return c.JSON(record)
	}
}
