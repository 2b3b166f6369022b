package services

import "log"

// DefaultPageSize matches the server-enforced row cap per read request.
const DefaultPageSize = 1000

// DefaultMaxPages bounds read-back loops against a misbehaving backend.
const DefaultMaxPages = 50

// FetchPage returns the rows in the half-open window [from, to).
type FetchPage[T any] func(from, to int) ([]T, error)

// FetchAllPages accumulates successive windows until a page comes back
// shorter than the requested window, meaning the source is exhausted. The
// page count is capped: past the cap the accumulated (truncated) result is
// returned rather than looping forever.
func FetchAllPages[T any](fetch FetchPage[T], pageSize, maxPages int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var out []T
	for page := 0; page < maxPages; page++ {
		from := page * pageSize
		rows, err := fetch(from, from+pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < pageSize {
			return out, nil
		}
	}
	log.Printf("pagination: page cap %d reached, result truncated", maxPages)
	return out, nil
}
