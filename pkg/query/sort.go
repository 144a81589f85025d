package query

// DefaultSortColumn is the documented fallback when a sort key does not
// resolve: date_updated descending, stabilized by id ascending.
const DefaultSortColumn = "date_updated"

// Sort is a resolved sort specification.
type Sort struct {
	Column    string
	Ascending bool
}

// ResolveSort maps a client sort key onto a sortable column of the
// entity's table. An empty or unknown key falls back to date_updated
// descending regardless of the requested direction; this fallback is
// part of the contract, not an error.
func ResolveSort(entity Entity, sortKey string, ascending bool) Sort {
	if field, ok := fieldFor(entity, sortKey); ok {
		return Sort{Column: field.column, Ascending: ascending}
	}
	return Sort{Column: DefaultSortColumn, Ascending: false}
}
