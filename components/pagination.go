package components

import "strconv"

// Page is one window of a listing plus the cursor that resumes after it.
// NextCursor is nil on the final window; Items is empty, never nil, when the
// listing is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// Cursors are plain offsets into the snapshot taken at list time. An absent
// or malformed cursor restarts from the beginning, which keeps list calls
// total over arbitrary client input.
func parseCursor(cursor *string) int {
	if cursor == nil {
		return 0
	}
	n, err := strconv.Atoi(*cursor)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// pageSlice cuts the window starting at the cursor out of all and stamps the
// follow-up cursor when anything remains.
func pageSlice[T any](all []T, cursor *string, pageSize int) Page[T] {
	start := parseCursor(cursor)
	if start > len(all) {
		start = 0
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	items := make([]T, end-start)
	copy(items, all[start:end])
	page := Page[T]{Items: items}
	if end < len(all) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	return page
}
