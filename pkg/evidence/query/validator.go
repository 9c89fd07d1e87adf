package query

import (
	"relief-hq/relief/pkg/evidence"
)

const (
	// DefaultLimit is the default number of records to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records that can be returned in a single query.
	MaxLimit = 10000
)

// SortColumns maps the sortable fields to their storage columns.
var SortColumns = map[string]string{
	"decided_at":  "decided_at",
	"recorded_at": "recorded_at",
	"date":        "date",
	"score":       "score",
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate validates a query against MaxLimit.
func Validate(q *evidence.Query) error {
	return ValidateWithMax(q, MaxLimit)
}

// ValidateWithMax validates a query and returns an error if any parameters
// are invalid.
func ValidateWithMax(q *evidence.Query, maxLimit int) error {
	if q.Limit < 0 {
		return evidence.NewQueryError("limit", "must be >= 0, got %d", q.Limit)
	}
	if q.Limit > maxLimit {
		return evidence.NewQueryError("limit", "must be <= %d, got %d", maxLimit, q.Limit)
	}
	if q.Offset < 0 {
		return evidence.NewQueryError("offset", "must be >= 0, got %d", q.Offset)
	}

	if q.SortBy != "" {
		if _, ok := SortColumns[q.SortBy]; !ok {
			return evidence.NewQueryError("sort_by", "unknown field %s", q.SortBy)
		}
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError("sort_order", "%s is not 'asc' or 'desc'", q.SortOrder)
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError("start_time", "must be before end_time")
	}
	if q.FromDate != nil && q.ToDate != nil && q.FromDate.After(q.ToDate.Time) {
		return evidence.NewQueryError("from_date", "must not be after to_date")
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		return evidence.NewQueryError("min_score", "must be <= max_score")
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *evidence.Query) {
	ApplyDefaultsWithLimit(q, DefaultLimit)
}

// ApplyDefaultsWithLimit applies default values using limit as the default
// page size.
func ApplyDefaultsWithLimit(q *evidence.Query, limit int) {
	if q.Limit == 0 {
		q.Limit = limit
	}
	if q.SortBy == "" {
		q.SortBy = "decided_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
