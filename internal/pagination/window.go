// Package pagination computes the compact page list shown by a pager control.
package pagination

import (
	"encoding/json"
	"strconv"
)

// fullWindow is the largest page count rendered without ellipses.
const fullWindow = 7

// Ellipsis is the marker rendered in place of skipped pages.
const Ellipsis = "..."

// Entry is either a page number or an ellipsis marker.
type Entry struct {
	Page     int
	Ellipsis bool
}

// PageEntry returns an entry for page p.
func PageEntry(p int) Entry {
	return Entry{Page: p}
}

// Gap returns an ellipsis entry.
func Gap() Entry {
	return Entry{Ellipsis: true}
}

func (e Entry) String() string {
	if e.Ellipsis {
		return Ellipsis
	}
	return strconv.Itoa(e.Page)
}

// MarshalJSON renders a page as a number and a gap as "...".
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Ellipsis {
		return json.Marshal(Ellipsis)
	}
	return json.Marshal(e.Page)
}

// Window is the ordered list of entries for one (current, total) pair.
type Window []Entry

// Visible reports whether a pager should be rendered at all.
func Visible(total int) bool {
	return total > 1
}

// Compute returns the window for the current page out of total pages.
// Small page counts are listed in full; larger ones keep the first page, the
// neighbours of current and the last page, with gaps marked by ellipses.
func Compute(current, total int) Window {
	if total <= 0 {
		return Window{}
	}

	if total <= fullWindow {
		window := make(Window, 0, total)
		for p := 1; p <= total; p++ {
			window = append(window, PageEntry(p))
		}
		return window
	}

	window := Window{PageEntry(1)}
	if current > 3 {
		window = append(window, Gap())
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	if current <= 1 {
		// First page still shows two neighbours. The last page does not get
		// the mirror treatment: Compute(total, total) ends [.., total-1, total].
		end = min(total-1, 3)
	}
	for p := start; p <= end; p++ {
		window = append(window, PageEntry(p))
	}

	if current < total-2 {
		window = append(window, Gap())
	}
	return append(window, PageEntry(total))
}

// Change validates a page-change request. It returns the page to load and
// true, or false when the request is out of range or already current.
func Change(current, total, requested int) (int, bool) {
	if requested < 1 || requested > total || requested == current {
		return current, false
	}
	return requested, true
}
