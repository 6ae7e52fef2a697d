package service

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync/atomic"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/schema/soo/wml"
)

// unidocLicensed is set once a metered key has been accepted. unioffice
// refuses to open documents without one.
var unidocLicensed atomic.Bool

// SetUnidocLicense registers a metered unioffice key. An empty key keeps
// converters on the built-in OOXML reader.
func SetUnidocLicense(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set unidoc license: %w", err)
	}
	unidocLicensed.Store(true)
	return nil
}

// DocxConverter renders the body of a .docx file as simple semantic HTML:
// headings, paragraphs, bold/italic runs, bullet lists and tables.
type DocxConverter struct {
	licensed bool
}

// NewDocxConverter picks unioffice when a license was registered and the
// OOXML reader otherwise.
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{licensed: unidocLicensed.Load()}
}

func (c DocxConverter) Convert(data []byte) (*Rendered, error) {
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}

	var (
		blocks []docBlock
		err    error
	)
	if c.licensed {
		blocks, err = readUnioffice(data)
	} else {
		blocks, err = readOOXML(data)
	}
	if err != nil {
		return nil, err
	}

	w := &htmlWriter{seenStyles: make(map[string]bool)}
	for _, b := range blocks {
		if b.table != nil {
			w.table(b.table)
			continue
		}
		w.paragraph(b.paragraph)
	}
	w.closeList()

	return &Rendered{HTML: w.buf.String(), Warnings: w.warnings}, nil
}

type docRun struct {
	text   string
	bold   bool
	italic bool
}

type docParagraph struct {
	style string
	list  bool
	runs  []docRun
}

// docTable is rows of cells of paragraphs.
type docTable [][][]docParagraph

// docBlock is either a paragraph or a table, in body order.
type docBlock struct {
	paragraph docParagraph
	table     docTable
}

func readUnioffice(data []byte) ([]docBlock, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX document: %w", err)
	}
	defer doc.Close()

	body := doc.X().Body
	if body == nil {
		return nil, nil
	}

	// Paragraphs() and Tables() wrap the raw elements; index them so the
	// body can be walked in document order.
	paragraphs := make(map[*wml.CT_P]document.Paragraph)
	for _, p := range doc.Paragraphs() {
		paragraphs[p.X()] = p
	}
	tables := make(map[*wml.CT_Tbl]document.Table)
	for _, t := range doc.Tables() {
		tables[t.X()] = t
	}

	var blocks []docBlock
	for _, ble := range body.EG_BlockLevelElts {
		for _, block := range ble.EG_ContentBlockContent {
			for _, p := range block.P {
				if para, ok := paragraphs[p]; ok {
					blocks = append(blocks, docBlock{paragraph: unioParagraph(para)})
				}
			}
			for _, t := range block.Tbl {
				if tbl, ok := tables[t]; ok {
					blocks = append(blocks, docBlock{table: unioTable(tbl)})
				}
			}
		}
	}
	return blocks, nil
}

func unioParagraph(p document.Paragraph) docParagraph {
	out := docParagraph{style: p.Style()}
	out.list = isListStyle(out.style)
	for _, r := range p.Runs() {
		props := r.Properties()
		out.runs = append(out.runs, docRun{text: r.Text(), bold: props.IsBold(), italic: props.IsItalic()})
	}
	return out
}

func unioTable(t document.Table) docTable {
	var rows docTable
	for _, row := range t.Rows() {
		var cells [][]docParagraph
		for _, cell := range row.Cells() {
			var paras []docParagraph
			for _, p := range cell.Paragraphs() {
				paras = append(paras, unioParagraph(p))
			}
			cells = append(cells, paras)
		}
		rows = append(rows, cells)
	}
	return rows
}

type htmlWriter struct {
	buf        strings.Builder
	inList     bool
	warnings   []string
	seenStyles map[string]bool
}

func (w *htmlWriter) paragraph(p docParagraph) {
	content := paragraphContent(p)

	if p.list {
		if !w.inList {
			w.buf.WriteString("<ul>")
			w.inList = true
		}
		w.buf.WriteString("<li>" + content + "</li>")
		return
	}
	w.closeList()

	if tag, ok := blockTag(p.style); ok {
		if content == "" {
			return
		}
		w.buf.WriteString("<" + tag + ">" + content + "</" + tag + ">")
		return
	}

	w.warnStyle(p.style)
	if content == "" {
		return
	}
	w.buf.WriteString("<p>" + content + "</p>")
}

func (w *htmlWriter) table(t docTable) {
	w.closeList()
	w.buf.WriteString("<table>")
	for _, row := range t {
		w.buf.WriteString("<tr>")
		for _, cell := range row {
			parts := make([]string, 0, len(cell))
			for _, p := range cell {
				if c := paragraphContent(p); c != "" {
					parts = append(parts, "<p>"+c+"</p>")
				}
			}
			w.buf.WriteString("<td>" + strings.Join(parts, "") + "</td>")
		}
		w.buf.WriteString("</tr>")
	}
	w.buf.WriteString("</table>")
}

func (w *htmlWriter) closeList() {
	if w.inList {
		w.buf.WriteString("</ul>")
		w.inList = false
	}
}

func (w *htmlWriter) warnStyle(style string) {
	if style == "" || style == "Normal" || w.seenStyles[style] {
		return
	}
	w.seenStyles[style] = true
	w.warnings = append(w.warnings, fmt.Sprintf("Unrecognised paragraph style: '%s'", style))
}

func paragraphContent(p docParagraph) string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(runHTML(r.text, r.bold, r.italic))
	}
	return sb.String()
}

// runHTML escapes text and wraps it in emphasis tags.
func runHTML(text string, bold, italic bool) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	if italic {
		out = "<em>" + out + "</em>"
	}
	if bold {
		out = "<strong>" + out + "</strong>"
	}
	return out
}

// blockTag maps built-in Word paragraph style ids to HTML tags.
func blockTag(style string) (string, bool) {
	switch style {
	case "Title":
		return "h1", true
	case "Subtitle":
		return "h2", true
	case "Heading1", "Heading2", "Heading3", "Heading4", "Heading5", "Heading6":
		return "h" + strings.TrimPrefix(style, "Heading"), true
	}
	return "", false
}

func isListStyle(style string) bool {
	return strings.HasPrefix(style, "List")
}
