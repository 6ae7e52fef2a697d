package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

const documentPart = "word/document.xml"

var errNoDocumentPart = errors.New("word/document.xml not found")

// OOXML body elements. Tags carry local names only so any prefix bound to
// the wordprocessingml namespace matches.
type xmlDocument struct {
	Body struct {
		Items []xmlBodyItem `xml:",any"`
	} `xml:"body"`
}

// xmlBodyItem is a w:p or a w:tbl; the fields of the other are left empty.
type xmlBodyItem struct {
	XMLName xml.Name
	PPr     *xmlPPr       `xml:"pPr"`
	Content []xmlRunGroup `xml:",any"`
	Rows    []xmlRow      `xml:"tr"`
}

type xmlPPr struct {
	Style *xmlVal   `xml:"pStyle"`
	NumPr *struct{} `xml:"numPr"`
}

// xmlRunGroup is a w:r or a container of runs such as w:hyperlink or w:ins.
type xmlRunGroup struct {
	XMLName xml.Name
	RPr     *xmlRPr      `xml:"rPr"`
	Parts   []xmlRunPart `xml:",any"`
	Runs    []xmlRunItem `xml:"r"`
}

type xmlRunItem struct {
	RPr   *xmlRPr      `xml:"rPr"`
	Parts []xmlRunPart `xml:",any"`
}

type xmlRunPart struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type xmlRPr struct {
	Bold   *xmlVal `xml:"b"`
	Italic *xmlVal `xml:"i"`
}

type xmlVal struct {
	Val string `xml:"val,attr"`
}

type xmlRow struct {
	Cells []struct {
		Paragraphs []xmlBodyItem `xml:"p"`
	} `xml:"tc"`
}

// readOOXML reads the main document part straight from the package.
func readOOXML(data []byte) ([]docBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX document: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("failed to open DOCX document: %w", errNoDocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX document: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", documentPart, err)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", documentPart, err)
	}

	var blocks []docBlock
	for _, item := range doc.Body.Items {
		switch item.XMLName.Local {
		case "p":
			blocks = append(blocks, docBlock{paragraph: item.paragraph()})
		case "tbl":
			blocks = append(blocks, docBlock{table: item.table()})
		}
	}
	return blocks, nil
}

func (p xmlBodyItem) paragraph() docParagraph {
	out := docParagraph{}
	if p.PPr != nil {
		if p.PPr.Style != nil {
			out.style = p.PPr.Style.Val
		}
		out.list = p.PPr.NumPr != nil
	}
	out.list = out.list || isListStyle(out.style)

	for _, g := range p.Content {
		switch g.XMLName.Local {
		case "r":
			out.runs = append(out.runs, xmlRun(g.RPr, g.Parts))
		case "hyperlink", "ins", "smartTag", "fldSimple":
			for _, r := range g.Runs {
				out.runs = append(out.runs, xmlRun(r.RPr, r.Parts))
			}
		}
	}
	return out
}

func (p xmlBodyItem) table() docTable {
	var rows docTable
	for _, row := range p.Rows {
		var cells [][]docParagraph
		for _, cell := range row.Cells {
			var paras []docParagraph
			for _, cp := range cell.Paragraphs {
				paras = append(paras, cp.paragraph())
			}
			cells = append(cells, paras)
		}
		rows = append(rows, cells)
	}
	return rows
}

func xmlRun(rpr *xmlRPr, parts []xmlRunPart) docRun {
	var text bytes.Buffer
	for _, part := range parts {
		switch part.XMLName.Local {
		case "t":
			text.WriteString(part.Text)
		case "tab":
			text.WriteByte('\t')
		case "br", "cr":
			text.WriteByte('\n')
		}
	}
	r := docRun{text: text.String()}
	if rpr != nil {
		r.bold = rpr.Bold.on()
		r.italic = rpr.Italic.on()
	}
	return r
}

// on reports whether an OOXML toggle property is set. A bare element is on.
func (v *xmlVal) on() bool {
	if v == nil {
		return false
	}
	switch v.Val {
	case "0", "false", "off":
		return false
	}
	return true
}
