package pagination

// Meta is the pagination block of a content API list envelope.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page,omitempty"`
	Total       int `json:"total,omitempty"`
}

// Pager is the state behind one pager control.
type Pager struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Visible bool   `json:"visible"`
	Window  Window `json:"window"`
	HasPrev bool   `json:"has_prev"`
	HasNext bool   `json:"has_next"`
}

// NewPager builds the pager state for a list response.
func NewPager(meta Meta) Pager {
	current := meta.CurrentPage
	if current < 1 {
		current = 1
	}
	return Pager{
		Current: current,
		Total:   meta.LastPage,
		Visible: Visible(meta.LastPage),
		Window:  Compute(current, meta.LastPage),
		HasPrev: current > 1,
		HasNext: current < meta.LastPage,
	}
}

// Prev is the request behind the "previous" arrow.
func (p Pager) Prev() (int, bool) {
	return Change(p.Current, p.Total, p.Current-1)
}

// Next is the request behind the "next" arrow.
func (p Pager) Next() (int, bool) {
	return Change(p.Current, p.Total, p.Current+1)
}
