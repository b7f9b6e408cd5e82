package ui

import "testing"

func TestSuggest(t *testing.T) {
	known := []string{"Widget", "Element", "Button", "Label", "LayoutOptions"}

	tests := []struct {
		target string
		want   []string
	}{
		{"Buton", []string{"Button"}},
		{"label", []string{"Label"}},
		{"Widgte", []string{"Widget"}},
		{"Nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got := Suggest(tt.target, known)
			if len(got) != len(tt.want) {
				t.Fatalf("Suggest(%q) = %v, want %v", tt.target, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Suggest(%q)[%d] = %q, want %q", tt.target, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
