package services

import (
	"errors"
	"fmt"
	"testing"
)

// fakeSource serves windows over total rows and counts the pages requested.
func fakeSource(total int) (FetchPage[int], *int) {
	calls := 0
	fetch := func(from, to int) ([]int, error) {
		calls++
		if from > total {
			from = total
		}
		if to > total {
			to = total
		}
		out := make([]int, 0, to-from)
		for i := from; i < to; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	return fetch, &calls
}

func TestFetchAllPagesComplete(t *testing.T) {
	for _, tc := range []struct {
		total, pageSize int
	}{
		{0, 10}, {5, 10}, {10, 10}, {25, 10}, {2500, 1000},
	} {
		t.Run(fmt.Sprintf("%d_rows_page_%d", tc.total, tc.pageSize), func(t *testing.T) {
			fetch, _ := fakeSource(tc.total)
			rows, err := FetchAllPages(fetch, tc.pageSize, 100)
			if err != nil {
				t.Fatalf("FetchAllPages returned error: %v", err)
			}
			if len(rows) != tc.total {
				t.Fatalf("rows = %d, want %d", len(rows), tc.total)
			}
			for i, v := range rows {
				if v != i {
					t.Fatalf("row %d = %d, out of order", i, v)
				}
			}
		})
	}
}

func TestFetchAllPagesTruncatesAtCap(t *testing.T) {
	fetch, calls := fakeSource(5000)
	rows, err := FetchAllPages(fetch, 1000, 3)
	if err != nil {
		t.Fatalf("FetchAllPages returned error: %v", err)
	}
	if len(rows) != 3000 {
		t.Fatalf("rows = %d, want truncated 3000", len(rows))
	}
	if *calls != 3 {
		t.Fatalf("pages fetched = %d, want 3", *calls)
	}
}

func TestFetchAllPagesPropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	fetch := func(from, to int) ([]int, error) { return nil, boom }
	if _, err := FetchAllPages(fetch, 10, 10); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want propagated", err)
	}
}
