package template

import "testing"

func TestInterpolate(t *testing.T) {
	cases := []struct {
		name    string
		message string
		params  any
		want    string
	}{
		{name: "no params", message: "Hello %name%", want: "Hello %name%"},
		{name: "verbatim key", message: "Hello %name%", params: map[string]any{"%name%": "Ada"}, want: "Hello Ada"},
		{name: "bare key", message: "Hello %name%", params: map[string]string{"name": "Ada"}, want: "Hello Ada"},
		{name: "braces", message: "{count} items", params: map[string]any{"{count}": 3}, want: "3 items"},
		{name: "longest first", message: "%name_full% / %name%", params: map[string]any{"name": "A", "name_full": "Ada L"}, want: "Ada L / A"},
		{name: "non map ignored", message: "x %y%", params: []any{"z"}, want: "x %y%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Interpolate(tc.message, tc.params); got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}
