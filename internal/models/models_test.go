package models

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		m    Media
		want string
	}{
		{Media{FileName: "a.mp4", Caption: "cap"}, "a.mp4"},
		{Media{Caption: "cap"}, "cap"},
		{Media{}, "Unknown File"},
	}
	for _, tt := range tests {
		if got := tt.m.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.m, got, tt.want)
		}
	}
}
