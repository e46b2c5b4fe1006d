// Package vulnerabilities defines the GraphQL types and queries for stored NVD CVEs.
package vulnerabilities

import (
	"encoding/json"

	"github.com/graphql-go/graphql"

	"github.com/ortelius/pdvd-cvesync/model"
)

// CVEType represents one normalized NVD record.
var CVEType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CVE",
	Fields: graphql.Fields{
		"cve_id":            &graphql.Field{Type: graphql.String},
		"source_identifier": &graphql.Field{Type: graphql.String},
		"published":         &graphql.Field{Type: graphql.String},
		"last_modified":     &graphql.Field{Type: graphql.String},
		"status":            &graphql.Field{Type: graphql.String},
		"severity_score":    &graphql.Field{Type: graphql.Float},
		"severity_rating":   &graphql.Field{Type: graphql.String},
		"raw": &graphql.Field{
			Type:        graphql.String,
			Description: "Upstream cve object as JSON",
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				record, ok := p.Source.(model.CVERecord)
				if !ok || record.Raw == nil {
					return nil, nil
				}
				data, err := json.Marshal(record.Raw)
				if err != nil {
					return nil, err
				}
				return string(data), nil
			},
		},
	},
})

// CVEPageType is one page of the CVE listing
var CVEPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CVEPage",
	Fields: graphql.Fields{
		"total":  &graphql.Field{Type: graphql.Int},
		"offset": &graphql.Field{Type: graphql.Int},
		"limit":  &graphql.Field{Type: graphql.Int},
		"items":  &graphql.Field{Type: graphql.NewList(CVEType)},
	},
})

// SortFieldEnum lists the attributes a listing may be ordered by
var SortFieldEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "CVESortField",
	Values: graphql.EnumValueConfigMap{
		"CVE_ID":         &graphql.EnumValueConfig{Value: "cve_id"},
		"PUBLISHED":      &graphql.EnumValueConfig{Value: "published"},
		"LAST_MODIFIED":  &graphql.EnumValueConfig{Value: "last_modified"},
		"STATUS":         &graphql.EnumValueConfig{Value: "status"},
		"SEVERITY_SCORE": &graphql.EnumValueConfig{Value: "severity_score"},
	},
})

// SyncSummaryType mirrors model.SyncSummary
var SyncSummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SyncSummary",
	Fields: graphql.Fields{
		"mode":          &graphql.Field{Type: graphql.String},
		"trigger":       &graphql.Field{Type: graphql.String},
		"cutoff":        &graphql.Field{Type: graphql.String},
		"processed":     &graphql.Field{Type: graphql.Int},
		"duplicates":    &graphql.Field{Type: graphql.Int},
		"skipped":       &graphql.Field{Type: graphql.Int},
		"pages":         &graphql.Field{Type: graphql.Int},
		"total_results": &graphql.Field{Type: graphql.Int},
		"last_offset":   &graphql.Field{Type: graphql.Int},
		"started_at":    &graphql.Field{Type: graphql.DateTime},
		"finished_at":   &graphql.Field{Type: graphql.DateTime},
		"error":         &graphql.Field{Type: graphql.String},
		"success": &graphql.Field{
			Type: graphql.Boolean,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				switch summary := p.Source.(type) {
				case model.SyncSummary:
					return summary.Succeeded(), nil
				case *model.SyncSummary:
					return summary.Succeeded(), nil
				}
				return nil, nil
			},
		},
	},
})

// SyncStatusType mirrors model.SyncStatus
var SyncStatusType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SyncStatus",
	Fields: graphql.Fields{
		"running":      &graphql.Field{Type: graphql.Boolean},
		"current_mode": &graphql.Field{Type: graphql.String},
		"last_run":     &graphql.Field{Type: SyncSummaryType},
		"last_incremental_success": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return lastSuccess(p.Source, model.SyncModeIncremental), nil
			},
		},
		"last_full_success": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return lastSuccess(p.Source, model.SyncModeFull), nil
			},
		},
	},
})

func lastSuccess(source interface{}, mode model.SyncMode) interface{} {
	status, ok := source.(model.SyncStatus)
	if !ok {
		return nil
	}
	if ts, ok := status.LastSuccess[mode]; ok {
		return ts
	}
	return nil
}
