package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, format := range []string{"pdf", "csv", "txt", "md", "docx", "xlsx", "doc"} {
		if _, err := r.Get(format); err != nil {
			t.Errorf("Get(%q): %v", format, err)
		}
	}
	if _, err := r.Get("exe"); err == nil {
		t.Error("Get for unsupported format should fail")
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := NewRegistry()
	custom := &TextExtractor{}
	r.Register("log", custom)
	e, err := r.Get("log")
	if err != nil {
		t.Fatalf("Get after Register: %v", err)
	}
	if e != custom {
		t.Fatal("Register did not install the extractor")
	}
}

func TestTextExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello\nworld"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&TextExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 1 || res.Segments[0].Text != "hello\nworld" {
		t.Fatalf("segments = %+v", res.Segments)
	}
}

func TestTextExtractorEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&TextExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 0 {
		t.Fatalf("expected no segments, got %+v", res.Segments)
	}
}

func TestCSVExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "name,role\nAlice,engineer\nBob,designer\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&CSVExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(res.Segments))
	}
	if res.Segments[0].Text != "name: Alice\nrole: engineer" {
		t.Errorf("row 1 = %q", res.Segments[0].Text)
	}
	if res.Segments[0].Page != 1 || res.Segments[1].Page != 2 {
		t.Errorf("row numbers = %d, %d", res.Segments[0].Page, res.Segments[1].Page)
	}
}

func TestCSVExtractorRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	content := "a,b\n1,2,3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&CSVExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(res.Segments))
	}
	if !strings.Contains(res.Segments[0].Text, "column_3: 3") {
		t.Errorf("extra column should get a synthetic name: %q", res.Segments[0].Text)
	}
}

func TestCSVExtractorEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&CSVExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 0 {
		t.Fatalf("expected no segments, got %+v", res.Segments)
	}
}

const docxBodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Overview</w:t></w:r></w:p>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Width</w:t></w:r></w:p></w:tc>
        <w:tc><w:p></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>42</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p></w:p></w:tc>
        <w:tc><w:p></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Details</w:t></w:r></w:p>
    <w:p><w:r><w:t>Closing text.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "report.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(docxBodyXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDOCXExtractor(t *testing.T) {
	path := writeDocx(t, t.TempDir())

	res, err := (&DOCXExtractor{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(res.Segments), res.Segments)
	}

	first := res.Segments[0]
	if first.Section != "Overview" {
		t.Errorf("section = %q, want Overview", first.Section)
	}
	if !strings.Contains(first.Text, "First paragraph.") ||
		!strings.Contains(first.Text, "Second paragraph.") {
		t.Errorf("body text missing paragraphs: %q", first.Text)
	}
	if !strings.Contains(first.Text, "Name | Value") {
		t.Errorf("table row missing: %q", first.Text)
	}
	if !strings.Contains(first.Text, "Width | 42") {
		t.Errorf("empty cell should be dropped from the join: %q", first.Text)
	}
	if strings.Contains(first.Text, "|  |") || strings.Contains(first.Text, "| |") {
		t.Errorf("blank cell leaked into a row: %q", first.Text)
	}

	second := res.Segments[1]
	if second.Section != "Details" || second.Text != "Closing text." {
		t.Errorf("second segment = %+v", second)
	}
}

func TestDOCXExtractorMissingDocumentXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := (&DOCXExtractor{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected error for DOCX without word/document.xml")
	}
}

func TestSplitPageSegments(t *testing.T) {
	text := "SECTION ONE\nbody line a\nbody line b\n2.1 Costs\ncost details"
	segments := splitPageSegments(text, 4)

	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}
	if segments[0].Section != "SECTION ONE" || !strings.Contains(segments[0].Text, "body line a") {
		t.Errorf("segment 0 = %+v", segments[0])
	}
	if segments[1].Section != "2.1 Costs" || segments[1].Text != "cost details" {
		t.Errorf("segment 1 = %+v", segments[1])
	}
	if segments[0].Page != 4 {
		t.Errorf("page = %d, want 4", segments[0].Page)
	}
}

func TestSplitPageSegmentsNoHeadings(t *testing.T) {
	text := "just a normal line\nand another one"
	segments := splitPageSegments(text, 1)
	if len(segments) != 1 || segments[0].Section != "" {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestIsLikelyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"INTRODUCTION", true},
		{"3.2 Torque Settings", true},
		{"Section 4: Warranty", true},
		{"Appendix B", true},
		{"a normal sentence of body text", false},
		{"", false},
		{strings.Repeat("X", 150), false},
	}
	for _, tt := range tests {
		if got := isLikelyHeading(tt.line); got != tt.want {
			t.Errorf("isLikelyHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
