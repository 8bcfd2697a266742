package pagination

import (
	"encoding/json"
	"strings"
	"testing"
)

func render(w Window) string {
	parts := make([]string, len(w))
	for i, e := range w {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestComputeSmallTotalsListEveryPage(t *testing.T) {
	for current := 1; current <= 5; current++ {
		if got := render(Compute(current, 5)); got != "[1,2,3,4,5]" {
			t.Fatalf("Compute(%d, 5) = %s", current, got)
		}
	}
	if got := render(Compute(4, 7)); got != "[1,2,3,4,5,6,7]" {
		t.Fatalf("Compute(4, 7) = %s", got)
	}
}

func TestComputeLargeTotals(t *testing.T) {
	cases := []struct {
		current int
		total   int
		want    string
	}{
		{current: 10, total: 20, want: "[1,...,9,10,11,...,20]"},
		{current: 1, total: 20, want: "[1,2,3,...,20]"},
		{current: 2, total: 20, want: "[1,2,3,...,20]"},
		{current: 3, total: 20, want: "[1,2,3,4,...,20]"},
		{current: 4, total: 20, want: "[1,...,3,4,5,...,20]"},
		{current: 17, total: 20, want: "[1,...,16,17,18,...,20]"},
		{current: 18, total: 20, want: "[1,...,17,18,19,20]"},
		{current: 20, total: 20, want: "[1,...,19,20]"},
		{current: 5, total: 8, want: "[1,...,4,5,6,...,8]"},
		{current: 6, total: 8, want: "[1,...,5,6,7,8]"},
	}
	for _, tc := range cases {
		if got := render(Compute(tc.current, tc.total)); got != tc.want {
			t.Fatalf("Compute(%d, %d) = %s, want %s", tc.current, tc.total, got, tc.want)
		}
	}
}

// Only the first page is widened to two neighbours; the last page keeps one.
func TestComputeEdgesAreAsymmetric(t *testing.T) {
	if got := render(Compute(1, 20)); got != "[1,2,3,...,20]" {
		t.Fatalf("Compute(1, 20) = %s", got)
	}
	if got := render(Compute(20, 20)); got != "[1,...,19,20]" {
		t.Fatalf("Compute(20, 20) = %s", got)
	}
	if first, last := len(Compute(1, 20)), len(Compute(20, 20)); first != last+1 {
		t.Fatalf("expected the first-page window to be one entry longer, got %d and %d", first, last)
	}
}

func TestComputeDegenerateTotals(t *testing.T) {
	if got := Compute(1, 0); len(got) != 0 {
		t.Fatalf("Compute(1, 0) = %s", render(got))
	}
	if got := render(Compute(1, 1)); got != "[1]" {
		t.Fatalf("Compute(1, 1) = %s", got)
	}
	if Visible(0) || Visible(1) || !Visible(2) {
		t.Fatal("Visible() must hide the pager for one page or less")
	}
}

func TestWindowJSON(t *testing.T) {
	data, err := json.Marshal(Compute(10, 20))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `[1,"...",9,10,11,"...",20]` {
		t.Fatalf("unexpected JSON %s", data)
	}
}

func TestChange(t *testing.T) {
	cases := []struct {
		requested int
		page      int
		ok        bool
	}{
		{requested: 0, page: 3, ok: false},
		{requested: -2, page: 3, ok: false},
		{requested: 11, page: 3, ok: false},
		{requested: 3, page: 3, ok: false},
		{requested: 4, page: 4, ok: true},
		{requested: 1, page: 1, ok: true},
		{requested: 10, page: 10, ok: true},
	}
	for _, tc := range cases {
		page, ok := Change(3, 10, tc.requested)
		if page != tc.page || ok != tc.ok {
			t.Fatalf("Change(3, 10, %d) = %d,%v want %d,%v", tc.requested, page, ok, tc.page, tc.ok)
		}
	}
}

func TestPagerArrows(t *testing.T) {
	first := NewPager(Meta{CurrentPage: 1, LastPage: 3})
	if _, ok := first.Prev(); ok {
		t.Fatal("prev on first page must be a no-op")
	}
	if p, ok := first.Next(); !ok || p != 2 {
		t.Fatalf("Next() = %d,%v", p, ok)
	}
	if first.HasPrev || !first.HasNext || !first.Visible {
		t.Fatalf("unexpected pager %+v", first)
	}

	last := NewPager(Meta{CurrentPage: 3, LastPage: 3})
	if _, ok := last.Next(); ok {
		t.Fatal("next on last page must be a no-op")
	}

	single := NewPager(Meta{CurrentPage: 0, LastPage: 1})
	if single.Visible || single.Current != 1 {
		t.Fatalf("unexpected single-page pager %+v", single)
	}
}
