// Package query validates evidence queries before they reach storage.
//
// The validator checks:
//
//   - 0 <= limit <= the configured maximum
//   - offset >= 0
//   - the sort field is one of SortColumns and the order is asc or desc
//   - time, date and score ranges are not inverted
//
// ApplyDefaults fills in the page size and sorts newest decisions first.
//
//	q := &evidence.Query{CandidateID: "avi"}
//	query.ApplyDefaults(q)
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	records, err := store.Query(ctx, q)
package query
