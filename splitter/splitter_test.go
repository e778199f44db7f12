package splitter

import (
	"strings"
	"testing"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := New(800, 150)
	chunks := s.Split("first paragraph here.\n\nsecond paragraph here.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "first paragraph") || !strings.Contains(chunks[0], "second paragraph") {
		t.Fatalf("chunk lost content: %q", chunks[0])
	}
}

func TestSplitLongTextRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("lorem ipsum dolor sit amet ")
	}
	text := b.String() // well over 3000 chars, space-separated

	s := New(800, 150)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 800 {
			t.Errorf("chunk %d exceeds target size: %d chars", i, len(c))
		}
	}
}

func TestSplitOverlapCarriesTrailingContent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("word")
		b.WriteString(string(rune('a' + i%26)))
		b.WriteString(" ")
	}

	s := New(400, 100)
	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prefix := chunks[i]
		if len(prefix) > 40 {
			prefix = prefix[:40]
		}
		if !strings.Contains(chunks[i-1], prefix) {
			t.Errorf("chunk %d does not overlap with its predecessor:\nprev: %q\nnext: %q",
				i, chunks[i-1], chunks[i])
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha beta gamma ", 30) // ~510 chars
	para2 := strings.Repeat("delta epsilon zeta ", 30)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	s := New(800, 150)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected paragraph split, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0], "alpha") {
		t.Errorf("first chunk should hold paragraph one: %q", chunks[0])
	}
	if !strings.Contains(chunks[len(chunks)-1], "zeta") {
		t.Errorf("last chunk should hold paragraph two: %q", chunks[len(chunks)-1])
	}
}

func TestSplitHardSplitWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 2000)

	s := New(800, 150)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected hard split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 800 {
			t.Errorf("chunk %d exceeds target size: %d", i, len(c))
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s := New(800, 150)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := s.Split("   \n  "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(0, -1)
	if s.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", s.ChunkSize, DefaultChunkSize)
	}
	if s.Overlap != DefaultOverlap {
		t.Errorf("Overlap = %d, want %d", s.Overlap, DefaultOverlap)
	}
}

func TestCleanBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops page footer",
			in:   "useful content\nPage 3 of 12\nmore content",
			want: "useful content\nmore content",
		},
		{
			name: "drops copyright and confidential",
			in:   "Copyright 2024 Acme\nSTRICTLY CONFIDENTIAL\nthe actual text",
			want: "the actual text",
		},
		{
			name: "case insensitive",
			in:   "Scan the QR Code below\nreal text",
			want: "real text",
		},
		{
			name: "everything filtered",
			in:   "Page 1\nCopyright",
			want: "",
		},
		{
			name: "clean text untouched",
			in:   "alpha\nbeta",
			want: "alpha\nbeta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanBoilerplate(tt.in); got != tt.want {
				t.Errorf("CleanBoilerplate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
