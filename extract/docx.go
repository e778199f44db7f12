package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXExtractor handles .docx files by reading word/document.xml directly.
// Non-empty paragraphs are concatenated in order; table rows become lines
// with cells joined by " | ". Heading-styled paragraphs set the section
// name for the text that follows them.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Formats() []string { return []string{"docx"} }

func (e *DOCXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	return parseDocxXML(data)
}

// Minimal subset of the WordprocessingML schema: body-level paragraphs and
// tables, with runs of text inside each paragraph.
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Elements []docxBlock `xml:",any"`
}

type docxBlock struct {
	XMLName xml.Name
	Para    *docxPara
	Table   *docxTable
}

func (b *docxBlock) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "p":
		b.XMLName = start.Name
		b.Para = &docxPara{}
		return d.DecodeElement(b.Para, &start)
	case "tbl":
		b.XMLName = start.Name
		b.Table = &docxTable{}
		return d.DecodeElement(b.Table, &start)
	default:
		b.XMLName = start.Name
		return d.Skip()
	}
}

type docxPara struct {
	Props docxPPr   `xml:"pPr"`
	Runs  []docxRun `xml:"r"`
}

type docxPPr struct {
	Style docxStyle `xml:"pStyle"`
}

type docxStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

func parseDocxXML(data []byte) (*Result, error) {
	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var segments []Segment
	var body strings.Builder
	section := ""

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			segments = append(segments, Segment{Text: content, Section: section})
		}
		body.Reset()
	}

	for _, block := range doc.Body.Elements {
		switch {
		case block.Para != nil:
			text := paraText(block.Para)
			if text == "" {
				continue
			}
			if isHeadingStyle(block.Para.Props.Style.Val) {
				flush()
				section = text
				continue
			}
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.WriteString(text)
		case block.Table != nil:
			for _, row := range block.Table.Rows {
				// Empty cells are dropped rather than joined as blanks.
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					var cellText []string
					for i := range cell.Paras {
						if t := paraText(&cell.Paras[i]); t != "" {
							cellText = append(cellText, t)
						}
					}
					if text := strings.Join(cellText, " "); text != "" {
						cells = append(cells, text)
					}
				}
				if len(cells) == 0 {
					continue
				}
				line := strings.Join(cells, " | ")
				if body.Len() > 0 {
					body.WriteString("\n")
				}
				body.WriteString(line)
			}
		}
	}
	flush()

	return &Result{Segments: segments}, nil
}

func paraText(p *docxPara) string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Texts {
			b.WriteString(t)
		}
	}
	return strings.TrimSpace(b.String())
}

func isHeadingStyle(style string) bool {
	lower := strings.ToLower(style)
	return strings.HasPrefix(lower, "heading") || strings.HasPrefix(lower, "title")
}
