// Package graphql assembles the GraphQL schema served at /api/v1/graphql.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/graphql/modules/dashboard"
	"github.com/ortelius/pdvd-cvesync/graphql/modules/vulnerabilities"
	"github.com/ortelius/pdvd-cvesync/internal/ingest"
)

// CreateSchema builds the read-only schema over the CVE store and sync service.
// tracker may be nil.
func CreateSchema(reader database.CVEReader, svc *ingest.Service, tracker *ingest.Tracker) (graphql.Schema, error) {
	fields := vulnerabilities.GetQueryFields(reader, svc)

	var watermark dashboard.WatermarkReader
	if tracker != nil {
		watermark = tracker
	}
	for name, field := range dashboard.GetQueryFields(reader, svc, watermark) {
		fields[name] = field
	}

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
}
