package commsutil

import "testing"

func TestBuildChangeSubject(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		want   string
	}{
		{"brand", "Brand", "inventory.changed.brand"},
		{"camel case", "CurrentStock", "inventory.changed.currentstock"},
		{"dots and spaces", "stock.bin item", "inventory.changed.stock_bin_item"},
		{"wildcards", "a*b>c", "inventory.changed.a_b_c"},
		{"empty", "  ", "inventory.changed._"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildChangeSubject(tt.entity)
			if got != tt.want {
				t.Errorf("commsutil:subjects_test - BuildChangeSubject(%q) = %q, want %q", tt.entity, got, tt.want)
			}
		})
	}
}
