package pagination

import (
	"reflect"
	"strings"
	"testing"
)

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{23, 10, 3},
		{20, 10, 2},
		{0, 10, 0},
		{1, 20, 1},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name             string
		page, total      int
		pages            []int
		hasPrev, hasNext bool
	}{
		{"middle", 5, 20, []int{3, 4, 5, 6, 7}, true, true},
		{"first", 1, 20, []int{1, 2, 3, 4, 5}, false, true},
		{"last", 20, 20, []int{18, 19, 20}, true, false},
		{"second", 2, 3, []int{1, 2, 3}, true, true},
		{"single", 1, 1, []int{1}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.page, tt.total)
			if !reflect.DeepEqual(w.Pages, tt.pages) {
				t.Errorf("Pages = %v, want %v", w.Pages, tt.pages)
			}
			if w.HasPrev != tt.hasPrev {
				t.Errorf("HasPrev = %v, want %v", w.HasPrev, tt.hasPrev)
			}
			if w.HasNext != tt.hasNext {
				t.Errorf("HasNext = %v, want %v", w.HasNext, tt.hasNext)
			}
		})
	}
}

func TestKeyboard(t *testing.T) {
	rows, err := Keyboard("the matrix", NewWindow(2, 3))
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	var labels, data []string
	for _, b := range rows[0] {
		labels = append(labels, b.Label)
		data = append(data, b.Data)
	}
	wantLabels := []string{"Prev", "1", "[2]", "3", "Next"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Errorf("labels = %v, want %v", labels, wantLabels)
	}
	wantData := []string{
		"page|the matrix|1",
		"page|the matrix|1",
		"ignore|the matrix|2",
		"page|the matrix|3",
		"page|the matrix|3",
	}
	if !reflect.DeepEqual(data, wantData) {
		t.Errorf("data = %v, want %v", data, wantData)
	}

	if rows[1][0].Data != "page|the matrix|1" || rows[1][1].Data != "page|the matrix|3" {
		t.Errorf("first/last = %q, %q", rows[1][0].Data, rows[1][1].Data)
	}
}

func TestKeyboardLongKeywordFits(t *testing.T) {
	kw := strings.TrimSpace(strings.Repeat("spider man ", 10))
	rows, err := Keyboard(kw, NewWindow(1, 150))
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}
	for _, row := range rows {
		for _, b := range row {
			if len(b.Data) > MaxPayloadBytes {
				t.Errorf("button %q payload %d bytes", b.Label, len(b.Data))
			}
			if _, err := Decode(b.Data); err != nil {
				t.Errorf("button %q payload %q does not decode: %v", b.Label, b.Data, err)
			}
		}
	}
}
