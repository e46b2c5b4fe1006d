package cves

import "github.com/ortelius/pdvd-cvesync/model"

// SyncResponse is returned by the sync trigger endpoints
type SyncResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Summary model.SyncSummary `json:"summary"`
}

// ListResponse is one page of the CVE listing
type ListResponse struct {
	Total  int64             `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Sort   string            `json:"sort"`
	Items  []model.CVERecord `json:"items"`
}
