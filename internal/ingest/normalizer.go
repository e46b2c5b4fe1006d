package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/model"
	"github.com/ortelius/pdvd-cvesync/util"
)

// Normalizer turns raw upstream cve objects into canonical records.
// Field parse failures never fail a record; they are logged and counted.
type Normalizer struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewNormalizer creates a normalizer reporting parse failures to logger
func NewNormalizer(logger *zap.Logger, metrics *Metrics) *Normalizer {
	return &Normalizer{logger: logger, metrics: metrics}
}

// CVEID extracts the trimmed id of a raw item, empty when missing or not a string
func CVEID(item map[string]interface{}) string {
	return util.StringOrDefault(item["id"], "")
}

// Normalize builds the canonical record for a raw item whose id is cveID
func (n *Normalizer) Normalize(ctx context.Context, cveID string, item map[string]interface{}) model.CVERecord {
	record := model.NewCVERecord(cveID)
	record.SourceIdentifier = util.StringOrDefault(item["sourceIdentifier"], model.Unknown)
	record.Status = util.StringOrDefault(item["vulnStatus"], model.Unknown)
	record.Published = n.date(ctx, cveID, "published", item["published"])
	record.LastModified = n.date(ctx, cveID, "lastModified", item["lastModified"])
	record.SeverityScore, record.SeverityRating = util.SeverityFromMetrics(item["metrics"])
	record.Raw = item

	return *record
}

func (n *Normalizer) date(ctx context.Context, cveID, field string, value interface{}) string {
	date, ok := util.CleanDate(value)
	if !ok {
		n.logger.Warn("Unparseable date, storing Unknown",
			zap.String("cve_id", cveID),
			zap.String("field", field),
			zap.Any("value", value))
		n.metrics.ParseFailure(ctx, field)
	}
	return date
}
