package tree

import (
	"testing"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"Drawings", "Drawings"},
		{"A/B Submittals", "A_B Submittals"},
		{`..\..\etc`, `.._.._etc`},
		{"..", "_"},
		{".", "_"},
		{"", "_"},
		{"  ", "_"},
		{"Rev 2.pdf", "Rev 2.pdf"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.name); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBuildChildPath(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "B", "B"},
		{"B", "C", "B/C"},
		{"a/b", "c", "a/b/c"},
		{"a", "x/y", "a/x_y"},
	}
	for _, tt := range tests {
		got := BuildChildPath(tt.parent, tt.name)
		if got != tt.want {
			t.Errorf("BuildChildPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		base, rel, name, want string
	}{
		{"Tower", "", "A.pdf", "Tower/A.pdf"},
		{"Tower", "B", "C.pdf", "Tower/B/C.pdf"},
		{"Tower", "B/D", "", "Tower/B/D"},
		{"", "B", "C", "B/C"},
		{"Tower", "", "../escape", "Tower/.._escape"},
	}
	for _, tt := range tests {
		got := Key(tt.base, tt.rel, tt.name)
		if got != tt.want {
			t.Errorf("Key(%q, %q, %q) = %q, want %q", tt.base, tt.rel, tt.name, got, tt.want)
		}
	}
}

func TestDisplayAndDepth(t *testing.T) {
	if got := Display(""); got != "/" {
		t.Errorf("Display(root) = %q", got)
	}
	if got := Display("a/b"); got != "/a/b" {
		t.Errorf("Display(a/b) = %q", got)
	}
	for rel, want := range map[string]int{"": 0, "a": 1, "a/b/c": 3} {
		if got := Depth(rel); got != want {
			t.Errorf("Depth(%q) = %d, want %d", rel, got, want)
		}
	}
}
