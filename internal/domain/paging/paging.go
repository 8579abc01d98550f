package paging

import "errors"

// ErrInvalidPage is returned for a page number past the last page.
var ErrInvalidPage = errors.New("invalid page")

// Window is an offset/limit slice of an ordered result set.
type Window struct {
	Offset int
	Limit  int
}

// DefaultSize is the page size used by every list endpoint.
const DefaultSize = 10

// Page returns the window for a 1-based page number.
func Page(number, size int) Window {
	if size <= 0 {
		size = DefaultSize
	}
	if number < 1 {
		number = 1
	}
	return Window{Offset: (number - 1) * size, Limit: size}
}

// LastPage returns the highest valid page number for total rows. An empty
// result set still has page 1.
func LastPage(total int64, size int) int {
	if size <= 0 {
		size = DefaultSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Check rejects page numbers outside 1..LastPage(total, size).
func Check(number int, total int64, size int) error {
	if number < 1 || number > LastPage(total, size) {
		return ErrInvalidPage
	}
	return nil
}
