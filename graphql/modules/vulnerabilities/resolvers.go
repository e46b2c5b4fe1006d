package vulnerabilities

import (
	"context"

	"github.com/ortelius/pdvd-cvesync/database"
)

// ResolveCVE fetches one record by id. A missing record resolves to null.
func ResolveCVE(ctx context.Context, reader database.CVEReader, id string) (interface{}, error) {
	record, err := reader.GetCVE(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return *record, nil
}

// ResolveCVEPage fetches one page of records together with the overall count
func ResolveCVEPage(ctx context.Context, reader database.CVEReader, opts database.ListOptions) (map[string]interface{}, error) {
	opts = opts.Normalize()

	total, err := reader.CountCVEs(ctx)
	if err != nil {
		return nil, err
	}

	records, err := reader.ListCVEs(ctx, opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total":  total,
		"offset": opts.Offset,
		"limit":  opts.Limit,
		"items":  records,
	}, nil
}
