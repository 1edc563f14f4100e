package llm

import "testing"

func TestFirstJSONArray(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare array",
			text: `[{"a": 1}]`,
			want: `[{"a": 1}]`,
			ok:   true,
		},
		{
			name: "prose around the array",
			text: "Here you go:\n[1, 2, 3]\nHope that helps!",
			want: "[1, 2, 3]",
			ok:   true,
		},
		{
			name: "markdown fenced",
			text: "```json\n[{\"a\": 1}]\n```",
			want: `[{"a": 1}]`,
			ok:   true,
		},
		{
			name: "nested arrays balanced",
			text: `[[1, 2], [3, 4]] trailing`,
			want: `[[1, 2], [3, 4]]`,
			ok:   true,
		},
		{
			name: "brackets inside strings ignored",
			text: `[{"content": "uses [brackets] in text"}]`,
			want: `[{"content": "uses [brackets] in text"}]`,
			ok:   true,
		},
		{
			name: "escaped quotes inside strings",
			text: `[{"content": "she said \"hi [there]\""}]`,
			want: `[{"content": "she said \"hi [there]\""}]`,
			ok:   true,
		},
		{
			name: "no array at all",
			text: "I found nothing to extract.",
			ok:   false,
		},
		{
			name: "unbalanced array",
			text: `[{"a": 1}`,
			ok:   false,
		},
		{
			name: "empty input",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONArray(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"summary": "x"}`,
			want: `{"summary": "x"}`,
			ok:   true,
		},
		{
			name: "prose wrapped",
			text: "Result: {\"summary\": \"x\", \"key_topics\": [\"a\"]} done",
			want: `{"summary": "x", "key_topics": ["a"]}`,
			ok:   true,
		},
		{
			name: "braces inside strings ignored",
			text: `{"summary": "uses {braces} freely"}`,
			want: `{"summary": "uses {braces} freely"}`,
			ok:   true,
		},
		{
			name: "no object",
			text: "just words",
			ok:   false,
		},
		{
			name: "unbalanced object",
			text: `{"summary": "x"`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
