package extract

import (
	"reflect"
	"testing"
	"time"
)

func TestExtract(t *testing.T) {
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(WithClock(func() time.Time { return fixedNow }))

	text := "Deutsche Telekom and Ericsson Networks announced a partnership on 15.03.2024. " +
		"The 5G rollout continues. See also 2024-03-15 and 01.01.2025 for details."
	meta := e.Extract(text, "/data/press_042.txt")

	if meta.PublicationID != "press_042" {
		t.Errorf("PublicationID = %q, want %q", meta.PublicationID, "press_042")
	}
	if meta.Source != DefaultSource {
		t.Errorf("Source = %q, want %q", meta.Source, DefaultSource)
	}
	if !meta.ExtractedAt.Equal(fixedNow) {
		t.Errorf("ExtractedAt = %v, want %v", meta.ExtractedAt, fixedNow)
	}
	if meta.WordCount != 21 {
		t.Errorf("WordCount = %d, want 21", meta.WordCount)
	}
	if meta.ContentHash != ContentHash(text) {
		t.Errorf("ContentHash mismatch")
	}
	// 15.03.2024 and 2024-03-15 normalize to the same date.
	wantDates := []string{"2024-03-15", "2025-01-01"}
	if !reflect.DeepEqual(meta.MentionedDates, wantDates) {
		t.Errorf("MentionedDates = %v, want %v", meta.MentionedDates, wantDates)
	}
}

func TestExtractTopics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single topic",
			text: "Our new 5G network covers the whole country.",
			want: []string{"5G"},
		},
		{
			name: "multiple topics in fixed order",
			text: "A sustainable security solution built in partnership.",
			want: []string{"Security", "Partnership", "Product", "Sustainability"},
		},
		{
			name: "case insensitive",
			text: "CYBERSECURITY matters.",
			want: []string{"Security"},
		},
		{
			name: "no topics",
			text: "Nothing relevant here.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTopics(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractTopics(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractCompanies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "cap-case bigram",
			text: "today Deutsche Telekom announced",
			want: []string{"Deutsche Telekom"},
		},
		{
			name: "punctuation stripped",
			text: "with (Ericsson Networks), among others",
			want: []string{"Ericsson Networks"},
		},
		{
			name: "all-caps words rejected",
			text: "the IBM CLOUD offering",
			want: nil,
		},
		{
			name: "duplicates collapsed",
			text: "Deutsche Telekom and Deutsche Telekom",
			want: []string{"Deutsche Telekom"},
		},
		{
			name: "non-alphabetic rejected",
			text: "Version2 Rollout and T-Systems International",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCompanies(tt.text, companyLimit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractCompanies(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractCompaniesLimit(t *testing.T) {
	text := "Alpha Corp Beta Corp Gamma Corp"
	got := extractCompanies(text, 2)
	if len(got) != 2 {
		t.Fatalf("got %d companies, want 2: %v", len(got), got)
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"press_001.txt", "press_001"},
		{"/deep/path/report.2024.txt", "report.2024"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentHashStable(t *testing.T) {
	if ContentHash("abc") != ContentHash("abc") {
		t.Error("hash of identical text differs")
	}
	if ContentHash("abc") == ContentHash("abd") {
		t.Error("hash of different text collides")
	}
	if len(ContentHash("")) != 64 {
		t.Errorf("hash length = %d, want 64", len(ContentHash("")))
	}
}

func TestWithSource(t *testing.T) {
	e := New(WithSource("Custom Source"))
	meta := e.Extract("text", "a.txt")
	if meta.Source != "Custom Source" {
		t.Errorf("Source = %q, want %q", meta.Source, "Custom Source")
	}
}
