package cli

import "testing"

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", formatSVG},
		{"map.svg", formatSVG},
		{"map.dot", formatDOT},
		{"map.GV", formatDOT},
		{"out/map.json", formatJSON},
		{"map.png", formatSVG},
	}
	for _, tt := range tests {
		if got := formatFromPath(tt.path); got != tt.want {
			t.Errorf("formatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
