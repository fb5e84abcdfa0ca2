package llm

import (
	"reflect"
	"testing"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "bare array",
			raw:  `[1, 2, 3]`,
			want: `[1, 2, 3]`,
			ok:   true,
		},
		{
			name: "prose wrapped",
			raw:  "Here are the results:\n[\"a\", \"b\"]\nHope that helps!",
			want: `["a", "b"]`,
			ok:   true,
		},
		{
			name: "code fence",
			raw:  "```json\n[{\"x\": 1}]\n```",
			want: `[{"x": 1}]`,
			ok:   true,
		},
		{
			name: "no array",
			raw:  `{"x": 1}`,
			ok:   false,
		},
		{
			name: "unbalanced",
			raw:  `[1, 2`,
			ok:   false,
		},
		{
			name: "invalid interior",
			raw:  `[1, 2,]`,
			ok:   false,
		},
		{
			name: "empty input",
			raw:  "",
			ok:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONArray(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("extracted %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeStringArray(t *testing.T) {
	got, ok := DecodeStringArray("Sure!\n[\"wireless earbuds\", \"bluetooth earbuds\"]")
	if !ok {
		t.Fatal("expected successful decode")
	}
	want := []string{"wireless earbuds", "bluetooth earbuds"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded %v, want %v", got, want)
	}

	if _, ok := DecodeStringArray(`[1, 2, 3]`); ok {
		t.Error("non-string array must not decode")
	}
	if _, ok := DecodeStringArray("no json here"); ok {
		t.Error("prose must not decode")
	}
}
