package merge

import (
	"reflect"
	"testing"
)

func TestRecords(t *testing.T) {
	tests := []struct {
		name   string
		strong map[string]any
		weak   map[string]any
		want   map[string]any
	}{
		{
			name: "empty inputs",
			want: map[string]any{},
		},
		{
			name:   "strong scalar wins",
			strong: map[string]any{"theme": "light"},
			weak:   map[string]any{"theme": "dark", "size": 3.0},
			want:   map[string]any{"theme": "light", "size": 3.0},
		},
		{
			name:   "nested objects merge",
			strong: map[string]any{"layout": map[string]any{"cols": 4.0}},
			weak:   map[string]any{"layout": map[string]any{"cols": 2.0, "rows": 1.0}},
			want:   map[string]any{"layout": map[string]any{"cols": 4.0, "rows": 1.0}},
		},
		{
			name:   "arrays replace",
			strong: map[string]any{"tags": []any{"b"}},
			weak:   map[string]any{"tags": []any{"a", "c"}},
			want:   map[string]any{"tags": []any{"b"}},
		},
		{
			name:   "null clears",
			strong: map[string]any{"note": nil},
			weak:   map[string]any{"note": "x"},
			want:   map[string]any{"note": nil},
		},
		{
			name:   "object replaces scalar",
			strong: map[string]any{"layout": map[string]any{"cols": 1.0}},
			weak:   map[string]any{"layout": "grid"},
			want:   map[string]any{"layout": map[string]any{"cols": 1.0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Records(tt.strong, tt.weak); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("merge mismatch:\nwant: %#v\n got: %#v", tt.want, got)
			}
		})
	}
}

func TestRecordsDoesNotAliasInputs(t *testing.T) {
	nested := map[string]any{"cols": 2.0}
	weak := map[string]any{"layout": nested}
	got := Records(map[string]any{}, weak)

	got["layout"].(map[string]any)["cols"] = 9.0
	if nested["cols"] != 2.0 {
		t.Fatalf("merge result must not share nested maps with its inputs")
	}
}
