// Package pagination maps an ordered collection onto fixed-size pages.
package pagination

// Page is the visible window of a collection.
type Page[T any] struct {
	Visible   []T
	PageCount int
}

// PageCount returns max(1, ceil(total/pageSize)).
func PageCount(total, pageSize int) int {
	if total <= 0 {
		return 1
	}
	count := total / pageSize
	if total%pageSize > 0 {
		count++
	}
	return count
}

// Clamp bounds page to [1, PageCount(total, pageSize)].
func Clamp(page, total, pageSize int) int {
	if page < 1 {
		return 1
	}
	if last := PageCount(total, pageSize); page > last {
		return last
	}
	return page
}

// Offset is the index of the first item on page (1-based).
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// Paginate returns the items visible on page together with the page count.
//
// Preconditions: pageSize > 0 and 1 <= page <= PageCount(len(items), pageSize).
// Callers clamp with Clamp; Paginate does not.
//
// Visible shares the backing array with items but its capacity is capped, so
// appending to it never writes into the collection.
func Paginate[T any](items []T, pageSize, page int) Page[T] {
	start := Offset(page, pageSize)
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{
		Visible:   items[start:end:end],
		PageCount: PageCount(len(items), pageSize),
	}
}
