package events

import "slices"

// Session-scoped attributes. On the relational store these live on the
// session table; the columnar store copies them onto every event row.
var SessionColumns = []string{"browser", "os", "device", "country", "region", "city", "language"}

// IsSessionColumn reports whether column belongs to the session entity.
func IsSessionColumn(column string) bool {
	return slices.Contains(SessionColumns, column)
}
