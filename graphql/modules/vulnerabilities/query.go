package vulnerabilities

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/model"
)

// StatusProvider reports the state of the sync service
type StatusProvider interface {
	Status(ctx context.Context) model.SyncStatus
}

// GetQueryFields returns the CVE queries to be mounted in the root schema.
func GetQueryFields(reader database.CVEReader, status StatusProvider) graphql.Fields {
	return graphql.Fields{
		"cve": &graphql.Field{
			Type: CVEType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id := p.Args["id"].(string)
				return ResolveCVE(p.Context, reader, id)
			},
		},
		"cves": &graphql.Field{
			Type: CVEPageType,
			Args: graphql.FieldConfigArgument{
				"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				"sort":       &graphql.ArgumentConfig{Type: SortFieldEnum, DefaultValue: "cve_id"},
				"descending": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				opts := database.ListOptions{
					Limit:      p.Args["limit"].(int),
					Offset:     p.Args["offset"].(int),
					SortField:  p.Args["sort"].(string),
					Descending: p.Args["descending"].(bool),
				}
				return ResolveCVEPage(p.Context, reader, opts)
			},
		},
		"cveCount": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return reader.CountCVEs(p.Context)
			},
		},
		"syncStatus": &graphql.Field{
			Type: SyncStatusType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return status.Status(p.Context), nil
			},
		},
	}
}
