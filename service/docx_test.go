package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

// buildDocx packs body (the children of w:body) into a minimal .docx.
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
	}
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDocxConverterConvert(t *testing.T) {
	body := `<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Safe Agreement</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">This agreement is between </w:t></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>Acme &amp; Co</w:t></w:r>` +
		`<w:r><w:rPr><w:b w:val="0"/><w:i/></w:rPr><w:t> and the investor.</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>First</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>Second</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:pStyle w:val="BodyText"/></w:pPr><w:hyperlink><w:r><w:t>Link text</w:t></w:r></w:hyperlink></w:p>` +
		`<w:tbl><w:tblPr/><w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>[Company]</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:pPr><w:pStyle w:val="BodyText"/></w:pPr><w:r><w:t>Again</w:t></w:r></w:p>` +
		`<w:sectPr/>`

	out, err := NewDocxConverter().Convert(buildDocx(t, body))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "<h1>Safe Agreement</h1>" +
		"<p>This agreement is between <strong>Acme &amp; Co</strong><em> and the investor.</em></p>" +
		"<ul><li>First</li><li>Second</li></ul>" +
		"<p>Link text</p>" +
		"<table><tr><td><p>Name</p></td><td><p>[Company]</p></td></tr></table>" +
		"<p>Again</p>"
	if out.HTML != want {
		t.Errorf("HTML = %q\nwant %q", out.HTML, want)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "Unrecognised paragraph style: 'BodyText'" {
		t.Errorf("Unexpected warnings %v", out.Warnings)
	}
}

func TestDocxConverterEmptyBody(t *testing.T) {
	out, err := NewDocxConverter().Convert(buildDocx(t, `<w:p/><w:sectPr/>`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.HTML != "" || len(out.Warnings) != 0 {
		t.Errorf("Expected empty output, got %+v", out)
	}
}

func TestDocxConverterMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	_, err := NewDocxConverter().Convert(buf.Bytes())
	if !errors.Is(err, errNoDocumentPart) {
		t.Errorf("Expected errNoDocumentPart, got %v", err)
	}
}

func TestDocxConverterMalformedXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/document.xml")
	f.Write([]byte("<w:document><w:body><w:p>"))
	zw.Close()

	_, err := NewDocxConverter().Convert(buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "failed to parse word/document.xml") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestDocxConverterRejectsEmpty(t *testing.T) {
	if _, err := NewDocxConverter().Convert(nil); err == nil {
		t.Error("Expected error for empty document")
	}
}

func TestDocxConverterRejectsMalformed(t *testing.T) {
	_, err := NewDocxConverter().Convert([]byte("this is not a zip archive"))
	if err == nil {
		t.Fatal("Expected error for malformed document")
	}
	if !strings.Contains(err.Error(), "failed to open DOCX document") || strings.Contains(err.Error(), "license") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestRunHTML(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		bold   bool
		italic bool
		want   string
	}{
		{"plain", "Acme Corp", false, false, "Acme Corp"},
		{"escaped", "A & B <Ltd>", false, false, "A &amp; B &lt;Ltd&gt;"},
		{"bold", "Party", true, false, "<strong>Party</strong>"},
		{"bold italic", "Note", true, true, "<strong><em>Note</em></strong>"},
		{"empty", "", true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runHTML(tt.text, tt.bold, tt.italic); got != tt.want {
				t.Errorf("runHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlockTag(t *testing.T) {
	tests := map[string]string{
		"Title":    "h1",
		"Subtitle": "h2",
		"Heading1": "h1",
		"Heading3": "h3",
		"Heading6": "h6",
	}
	for style, want := range tests {
		got, ok := blockTag(style)
		if !ok || got != want {
			t.Errorf("blockTag(%q) = %q, %v; want %q", style, got, ok, want)
		}
	}

	for _, style := range []string{"", "Normal", "Heading7", "BodyText"} {
		if _, ok := blockTag(style); ok {
			t.Errorf("Did not expect a block tag for %q", style)
		}
	}
}

func TestHTMLWriterWarnsOncePerStyle(t *testing.T) {
	w := &htmlWriter{seenStyles: make(map[string]bool)}
	w.warnStyle("BodyText")
	w.warnStyle("BodyText")
	w.warnStyle("Normal")
	w.warnStyle("")

	if len(w.warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", w.warnings)
	}
	if w.warnings[0] != "Unrecognised paragraph style: 'BodyText'" {
		t.Errorf("Unexpected warning %q", w.warnings[0])
	}
}

func TestIsListStyle(t *testing.T) {
	if !isListStyle("ListParagraph") || !isListStyle("ListBullet") {
		t.Error("Expected list styles to be recognised")
	}
	if isListStyle("Heading1") {
		t.Error("Did not expect Heading1 to be a list style")
	}
}

func TestSetUnidocLicenseEmpty(t *testing.T) {
	if err := SetUnidocLicense(""); err != nil {
		t.Errorf("Expected no error for empty key, got %v", err)
	}
	if NewDocxConverter().licensed {
		t.Error("Expected the OOXML reader without a license")
	}
}
