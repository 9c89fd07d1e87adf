package storage

import (
	"cmp"
	"fmt"
	"strings"

	"relief-hq/relief/pkg/evidence"
	"relief-hq/relief/pkg/evidence/query"
)

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *evidence.Record, q *evidence.Query) bool {
	switch {
	case q.ID != "" && record.ID != q.ID:
		return false
	case q.TraceID != "" && record.TraceID != q.TraceID:
		return false
	case q.StartTime != nil && record.DecidedAt.Before(*q.StartTime):
		return false
	case q.EndTime != nil && record.DecidedAt.After(*q.EndTime):
		return false
	case q.FromDate != nil && record.Date.Before(q.FromDate.Time):
		return false
	case q.ToDate != nil && record.Date.After(q.ToDate.Time):
		return false
	case q.PolicyID != "" && record.PolicyID != q.PolicyID:
		return false
	case q.CandidateID != "" && record.CandidateID != q.CandidateID:
		return false
	case q.AbsentID != "" && record.AbsentID != q.AbsentID:
		return false
	case q.BlockedBy != "" && record.BlockedBy != q.BlockedBy:
		return false
	case q.Allowed != nil && record.Allowed != *q.Allowed:
		return false
	case q.MinScore != nil && record.Score < *q.MinScore:
		return false
	case q.MaxScore != nil && record.Score > *q.MaxScore:
		return false
	}
	return true
}

// compareRecords orders records by the query's sort field, falling back to
// the record id so pages are stable.
func compareRecords(q *evidence.Query, a, b *evidence.Record) int {
	var c int
	switch q.SortBy {
	case "recorded_at":
		c = a.RecordedAt.Compare(b.RecordedAt)
	case "date":
		c = cmp.Or(a.Date.Compare(b.Date.Time), cmp.Compare(a.Period, b.Period))
	case "score":
		c = cmp.Compare(a.Score, b.Score)
	default:
		c = a.DecidedAt.Compare(b.DecidedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if !strings.EqualFold(q.SortOrder, "asc") {
		c = -c
	}
	return c
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(q *evidence.Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.ID != "" {
		add("id = ?", q.ID)
	}
	if q.TraceID != "" {
		add("trace_id = ?", q.TraceID)
	}
	if q.StartTime != nil {
		add("decided_at >= ?", q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		add("decided_at <= ?", q.EndTime.UnixNano())
	}
	if q.FromDate != nil {
		add("date >= ?", q.FromDate.String())
	}
	if q.ToDate != nil {
		add("date <= ?", q.ToDate.String())
	}
	if q.PolicyID != "" {
		add("policy_id = ?", q.PolicyID)
	}
	if q.CandidateID != "" {
		add("candidate_id = ?", q.CandidateID)
	}
	if q.AbsentID != "" {
		add("absent_id = ?", q.AbsentID)
	}
	if q.BlockedBy != "" {
		add("blocked_by = ?", q.BlockedBy)
	}
	if q.Allowed != nil {
		add("allowed = ?", *q.Allowed)
	}
	if q.MinScore != nil {
		add("score >= ?", *q.MinScore)
	}
	if q.MaxScore != nil {
		add("score <= ?", *q.MaxScore)
	}

	return strings.Join(conditions, " AND "), args
}

// buildOrderClause returns the ORDER BY, LIMIT and OFFSET suffix. Unknown
// sort fields fall back to decided_at.
func buildOrderClause(q *evidence.Query) string {
	column, ok := query.SortColumns[q.SortBy]
	if !ok {
		column = "decided_at"
	}
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}

	clause := fmt.Sprintf(" ORDER BY %s %s", column, order)
	if column == "date" {
		clause += fmt.Sprintf(", period %s", order)
	}
	clause += fmt.Sprintf(", id %s", order)
	if q.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			clause += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	} else if q.Offset > 0 {
		clause += fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset)
	}
	return clause
}
