package pagination

import "strconv"

// Number of page buttons shown around the current page.
const windowSize = 5

// Window is the set of page controls shown around the current page.
type Window struct {
	Page       int
	TotalPages int
	Pages      []int
	HasPrev    bool
	HasNext    bool
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// NewWindow computes [max(1, page-2), min(totalPages, start+4)].
func NewWindow(page, totalPages int) Window {
	w := Window{
		Page:       page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	start := max(1, page-2)
	end := min(totalPages, start+windowSize-1)
	for p := start; p <= end; p++ {
		w.Pages = append(w.Pages, p)
	}
	return w
}

// Button is a transport-neutral inline button carrying a payload.
type Button struct {
	Label string
	Data  string
}

// Keyboard renders the window as two rows: [Prev] pages [Next], then
// First/Last. The current page carries the ignore tag.
func Keyboard(keyword string, w Window) ([][]Button, error) {
	keyword = FitKeyword(keyword, max(w.TotalPages, w.Page+1))

	var nav []Button
	add := func(row *[]Button, label string, p Payload) error {
		data, err := Encode(p)
		if err != nil {
			return err
		}
		*row = append(*row, Button{Label: label, Data: data})
		return nil
	}

	if w.HasPrev {
		if err := add(&nav, "Prev", PageRequest{Keyword: keyword, Page: w.Page - 1}); err != nil {
			return nil, err
		}
	}
	for _, p := range w.Pages {
		var err error
		if p == w.Page {
			err = add(&nav, "["+strconv.Itoa(p)+"]", Ignore{Keyword: keyword, Page: p})
		} else {
			err = add(&nav, strconv.Itoa(p), PageRequest{Keyword: keyword, Page: p})
		}
		if err != nil {
			return nil, err
		}
	}
	if w.HasNext {
		if err := add(&nav, "Next", PageRequest{Keyword: keyword, Page: w.Page + 1}); err != nil {
			return nil, err
		}
	}

	var edges []Button
	if err := add(&edges, "First Page", PageRequest{Keyword: keyword, Page: 1}); err != nil {
		return nil, err
	}
	if err := add(&edges, "Last Page", PageRequest{Keyword: keyword, Page: max(w.TotalPages, 1)}); err != nil {
		return nil, err
	}

	rows := [][]Button{}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return append(rows, edges), nil
}
