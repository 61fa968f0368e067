package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		ext     string
		content []byte
		want    string
	}{
		{"text", ".txt", []byte("Hello world\nLine 2"), "Hello world\nLine 2"},
		{"markdown utf8", ".md", []byte("caf\xc3\xa9"), "café"},
		{"invalid utf8", ".rst", []byte("hello\x80world"), "hello�world"},
		{"bom stripped", ".txt", append([]byte{0xEF, 0xBB, 0xBF}, "Новости"...), "Новости"},
		{"extension without dot", "TXT", []byte("upper"), "upper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".xyz", ".pptx", ""} {
		if _, err := e.ExtractBytes([]byte("raw"), ext); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%q: expected ErrUnsupportedFormat, got %v", ext, err)
		}
	}
}

func TestExtractor_Supports(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".txt", "pdf", ".DOCX", ".odt", ".rtf", "xlsx"} {
		if !e.Supports(ext) {
			t.Errorf("expected %q to be supported", ext)
		}
	}
	for _, ext := range []string{".exe", "", ".pptx"} {
		if e.Supports(ext) {
			t.Errorf("expected %q to be unsupported", ext)
		}
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	f.SetCellValue("Sheet1", "A4", "After gap")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2\nAfter gap" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_files(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "news.txt")
	if err := os.WriteFile(txt, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	xlsx := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(xlsx); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	e := NewExtractor()
	for path, want := range map[string]string{txt: "File content", xlsx: "Searchable text"} {
		got, err := e.Extract(path)
		if err != nil {
			t.Fatalf("Extract(%s): %v", path, err)
		}
		if got != want {
			t.Errorf("Extract(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestExtract_errors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	path := filepath.Join(t.TempDir(), "binary.bin")
	if err := os.WriteFile(path, []byte{0, 1, 2}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Extract(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func docxBody(paragraphs string) string {
	return `<w:document ` + wordNS + `><w:body>` + paragraphs + `</w:body></w:document>`
}

// buildDocx zips files into a .docx package.
func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func contentTypes(override string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + override + `</Types>`
}

func TestExtractBytes_docx(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "default part",
			files: map[string]string{"word/document.xml": docxBody(`<w:p><w:r><w:t>Searchable docx content</w:t></w:r></w:p>`)},
			want:  "Searchable docx content",
		},
		{
			name: "paragraphs with attributes and split runs",
			files: map[string]string{"word/document.xml": docxBody(
				`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>Курс </w:t></w:r><w:r><w:t xml:space="preserve">рубля</w:t></w:r></w:p>` +
					`<w:p/><w:p><w:r><w:t>R&amp;D &lt;2024&gt;</w:t></w:r></w:p>`)},
			want: "Курс рубля\nR&D <2024>",
		},
		{
			name: "custom part from content types",
			files: map[string]string{
				"[Content_Types].xml": contentTypes(`<Override PartName="/word/document2.xml" ContentType="` + docxMainType + `"/>`),
				"word/document2.xml":  docxBody(`<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`),
			},
			want: "Content from document2",
		},
		{
			name: "content type before part name",
			files: map[string]string{
				"[Content_Types].xml": contentTypes(`<Override ContentType="` + docxMainType + `" PartName="/word/document3.xml"/>`),
				"word/document3.xml":  docxBody(`<w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p>`),
			},
			want: "Reversed order test",
		},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(buildDocx(t, tt.files), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
	missing := buildDocx(t, map[string]string{"other.xml": "<x/>"})
	if _, err := e.ExtractBytes(missing, ".docx"); err == nil {
		t.Error("expected error when the document part is missing")
	}
}
