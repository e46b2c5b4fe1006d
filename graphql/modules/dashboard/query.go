package dashboard

import (
	"github.com/graphql-go/graphql"

	"github.com/ortelius/pdvd-cvesync/database"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(reader database.CVEReader, status StatusProvider, watermark WatermarkReader) graphql.Fields {
	return graphql.Fields{
		// Top cards
		"dashboardOverview": &graphql.Field{
			Type: DashboardOverviewType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveOverview(p.Context, reader, status, watermark)
			},
		},
		// Charts
		"dashboardSeverity": &graphql.Field{
			Type: SeverityDistributionType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveSeverityDistribution(p.Context, reader)
			},
		},
	}
}
