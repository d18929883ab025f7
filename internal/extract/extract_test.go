package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"venture-backend/internal/shared/storage/object/local"
)

func TestExtractPlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("A business plan.\n"), "text/plain", "plan.txt")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if text != "A business plan." {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractPlainTextWithCharsetParam(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("hello"), "text/plain; charset=utf-8", "plan.txt")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractOctetStreamFallsBackToExtension(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("# Plan\nBody"), "application/octet-stream", "plan.md")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if !strings.Contains(text, "Body") {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	if _, err := ExtractTextFromBytes(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "plan.txt"); err == nil {
		t.Fatal("expected invalid UTF-8 error")
	}
}

func TestExtractUnsupportedMime(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("x"), "image/png", "plan.png")
	if err == nil || !strings.Contains(err.Error(), "unsupported mime type") {
		t.Fatalf("err = %v, want unsupported mime type", err)
	}
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDocx(t, docXML)

	text, err := ExtractTextFromBytes(context.Background(), data, mimeDOCX, "plan.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if !strings.Contains(text, "First paragraph.") || !strings.Contains(text, "Second paragraph.") {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractZipMimeMappedToDOCX(t *testing.T) {
	data := buildDocx(t, `<w:document xmlns:w="ns"><w:body><w:p><w:r><w:t>Zipped.</w:t></w:r></w:p></w:body></w:document>`)

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "plan.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if !strings.Contains(text, "Zipped.") {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractTextPersistsDerivedCopy(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()

	key := "user/plan.txt"
	if err := store.Put(ctx, key, strings.NewReader("stored plan body"), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	text, err := ExtractText(ctx, store, key, "text/plain", "plan.txt")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "stored plan body" {
		t.Fatalf("text = %q", text)
	}

	rc, err := store.Open(ctx, key+".extracted.txt")
	if err != nil {
		t.Fatalf("derived copy missing: %v", err)
	}
	rc.Close()
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
