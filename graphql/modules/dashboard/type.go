// Package dashboard defines the GraphQL types for the CVE dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// DashboardOverviewType represents the high-level metrics for the top cards
var DashboardOverviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DashboardOverview",
	Fields: graphql.Fields{
		"total_cves":       &graphql.Field{Type: graphql.Int},
		"latest_modified":  &graphql.Field{Type: graphql.String},
		"sync_running":     &graphql.Field{Type: graphql.Boolean},
		"last_sync_failed": &graphql.Field{Type: graphql.Boolean},
	},
})

// SeverityDistributionType represents the data for the pie/bar charts
var SeverityDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityDistribution",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"none":     &graphql.Field{Type: graphql.Int},
	},
})
