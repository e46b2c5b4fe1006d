// Package model - CVERecord defines the canonical NVD vulnerability document and the
// wire types returned by the NVD CVE 2.0 API.
package model

// Unknown is stored in place of missing or unparseable upstream values
const Unknown = "Unknown"

// CVERecord is the canonical document persisted per CVE id in the cve collection.
type CVERecord struct {
	Key              string                 `json:"_key,omitempty"`
	CveID            string                 `json:"cve_id"`            // e.g., "CVE-2024-1234"
	SourceIdentifier string                 `json:"source_identifier"` // e.g., "cve@mitre.org"
	Published        string                 `json:"published"`         // YYYY-MM-DD or "Unknown"
	LastModified     string                 `json:"last_modified"`     // YYYY-MM-DD or "Unknown"
	Status           string                 `json:"status"`            // upstream vulnStatus
	SeverityScore    float64                `json:"severity_score"`
	SeverityRating   string                 `json:"severity_rating"`
	Raw              map[string]interface{} `json:"raw,omitempty"` // full upstream "cve" object
	ObjType          string                 `json:"objtype"`
}

// NewCVERecord creates a record with every canonical field set to its default
func NewCVERecord(cveID string) *CVERecord {
	return &CVERecord{
		CveID:            cveID,
		SourceIdentifier: Unknown,
		Published:        Unknown,
		LastModified:     Unknown,
		Status:           Unknown,
		SeverityRating:   "NONE",
		ObjType:          "CVE",
	}
}

// NVDResponse is the JSON body returned by the NVD CVE 2.0 API for one page
type NVDResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Format          string             `json:"format"`
	Version         string             `json:"version"`
	Timestamp       string             `json:"timestamp"`
	Vulnerabilities []NVDVulnerability `json:"vulnerabilities"`
}

// NVDVulnerability wraps a single CVE item. The nested object is kept generic so
// that null or mistyped fields survive decoding and can be normalized later.
type NVDVulnerability struct {
	CVE map[string]interface{} `json:"cve"`
}

// NVDPage is the result of fetching one page from the upstream feed
type NVDPage struct {
	StartIndex   int
	TotalResults int
	Items        []map[string]interface{}
}
