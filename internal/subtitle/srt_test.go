package subtitle

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseSRT(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantTexts []string
		wantErr   bool
	}{
		{
			name:      "crlf and bom",
			input:     "\ufeff1\r\n00:00:00,000 --> 00:00:01,000\r\nHi\r\n\r\n2\r\n00:00:01,500 --> 00:00:02,000\r\nThere\r\n",
			wantCount: 2,
			wantTexts: []string{"Hi", "There"},
		},
		{
			name:      "empty text keeps the slot",
			input:     "1\n00:00:00,000 --> 00:00:01,000\n\n2\n00:00:02,000 --> 00:00:03,000\nspoken\n",
			wantCount: 2,
			wantTexts: []string{"", "spoken"},
		},
		{
			name:      "missing counter",
			input:     "00:00:00,000 --> 00:00:01,000\nno number\n\n00:00:01,000 --> 00:00:02,000\nstill fine\n",
			wantCount: 2,
			wantTexts: []string{"no number", "still fine"},
		},
		{
			name:      "extra blank lines",
			input:     "\n\n1\n00:00:00,000 --> 00:00:01,000\nA\n\n\n\n2\n00:00:01,000 --> 00:00:02,000\nB",
			wantCount: 2,
			wantTexts: []string{"A", "B"},
		},
		{
			name:    "bad timestamp",
			input:   "1\n00:00:00,000 --> 00:99:01,000\nA\n",
			wantErr: true,
		},
		{
			name:    "counter without timing",
			input:   "1\nhello\n",
			wantErr: true,
		},
		{
			name:      "empty input",
			input:     "",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := ParseSRT(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSRT() err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(sub.Entries) != tt.wantCount {
				t.Fatalf("got %d entries, want %d", len(sub.Entries), tt.wantCount)
			}
			for i, want := range tt.wantTexts {
				if sub.Entries[i].Text != want {
					t.Errorf("entry %d text = %q, want %q", i, sub.Entries[i].Text, want)
				}
			}
		})
	}
}

func TestWriteSRT(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{
		{StartTime: 1500 * time.Millisecond, EndTime: 2 * time.Second, Text: "b"},
	}}
	var buf bytes.Buffer
	if err := WriteSRT(&buf, sub); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	want := "1\n00:00:01,500 --> 00:00:02,000\nb\n\n"
	if buf.String() != want {
		t.Errorf("WriteSRT = %q, want %q", buf.String(), want)
	}
}

func TestParseVTTRequiresHeader(t *testing.T) {
	if _, err := ParseVTT(strings.NewReader("00:00.000 --> 00:01.000\nhi\n")); err == nil {
		t.Error("expected error without WEBVTT header")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:00:01,000", time.Second, false},
		{"01:02:03.456", time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond, false},
		{"02:03.456", 2*time.Minute + 3*time.Second + 456*time.Millisecond, false},
		{"100:00:00,000", 100 * time.Hour, false},
		{"00:00:01,5", 1500 * time.Millisecond, false},
		{"00:61:00,000", 0, true},
		{"garbage", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimestamp(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
