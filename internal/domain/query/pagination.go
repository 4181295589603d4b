// Package query holds shared query primitives for repositories.
package query

// Pagination describes cursor style pagination over numeric primary keys.
type Pagination struct {
	Limit *int
	After *uint
	Order string
}

// NewPagination builds a Pagination, normalizing order to "asc" or "desc".
func NewPagination(limit *int, after *uint, order string) *Pagination {
	if order != "desc" {
		order = "asc"
	}
	return &Pagination{
		Limit: limit,
		After: after,
		Order: order,
	}
}
