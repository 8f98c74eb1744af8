package translate

import (
	"strings"
	"testing"
)

func TestExtractTranslationResults(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "plain array",
			input:     `[{"index": 0, "text": "こんにちは"}, {"index": 1, "text": "さようなら"}]`,
			wantCount: 2,
		},
		{
			name: "preamble and trailing chatter",
			input: `Here you go:
			[{"index": 3, "text": "Bonjour"}]
			Let me know if you need anything else!`,
			wantCount: 1,
		},
		{
			name:      "results wrapper",
			input:     `{"results": [{"index": 0, "text": "Translated"}]}`,
			wantCount: 1,
		},
		{
			name:      "translations wrapper",
			input:     `{"translations": [{"index": 0, "text": "Übersetzt"}]}`,
			wantCount: 1,
		},
		{
			name:      "unknown wrapper key",
			input:     `{"lines": [{"index": 0, "text": "Hola"}, {"index": 1, "text": "Adiós"}]}`,
			wantCount: 2,
		},
		{
			name:      "subtitle newline escape",
			input:     `[{"index": 0, "text": "first line\Nsecond line"}]`,
			wantCount: 1,
		},
		{
			name:    "empty array",
			input:   `[]`,
			wantErr: true,
		},
		{
			name:    "plain text",
			input:   `I cannot translate this.`,
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			input:   `[{"index": 0, "text": "incomplete"`,
			wantErr: true,
		},
		{
			name:    "only empty texts",
			input:   `[{"index": 0, "text": ""}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := extractTranslationResults(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != tt.wantCount {
				t.Errorf("got %d results, want %d", len(results), tt.wantCount)
			}
		})
	}
}

func TestSubtitleNewlineSurvivesExtraction(t *testing.T) {
	results, err := extractTranslationResults(`[{"index": 0, "text": "a\Nb"}]`)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Text != `a\Nb` {
		t.Errorf("text = %q, want literal \\N kept", results[0].Text)
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `[{"index": 0}]`, `[{"index": 0}]`},
		{"json fence", "```json\n[{\"index\": 0}]\n```", `[{"index": 0}]`},
		{"bare fence", "```\n[{\"index\": 0}]\n```", `[{"index": 0}]`},
		{"padding", "  \n```json\n[]\n```\n  ", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.input); got != tt.want {
				t.Errorf("cleanJSONResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateResults(t *testing.T) {
	tests := []struct {
		name    string
		results []TranslationResult
		want    bool
	}{
		{"nil", nil, false},
		{"all empty", []TranslationResult{{Index: 0}}, false},
		{"one with text", []TranslationResult{{Index: 0}, {Index: 1, Text: "ok"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateResults(tt.results); got != tt.want {
				t.Errorf("validateResults() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchResults(t *testing.T) {
	items := []TranslationItem{
		{Index: 4, Text: "one"},
		{Index: 5, Text: "two"},
	}

	t.Run("reordered and extra", func(t *testing.T) {
		got, err := matchResults(items, []TranslationResult{
			{Index: 5, Text: "deux"},
			{Index: 9, Text: "stray"},
			{Index: 4, Text: "un"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Text != "un" || got[1].Text != "deux" {
			t.Errorf("unexpected results: %+v", got)
		}
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := matchResults(items, []TranslationResult{{Index: 4, Text: "un"}})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "missing indices [5]") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("blank translation", func(t *testing.T) {
		_, err := matchResults(items, []TranslationResult{
			{Index: 4, Text: "un"},
			{Index: 5, Text: "  "},
		})
		if err == nil {
			t.Error("blank translation should count as missing")
		}
	})
}
