package document

import (
	"errors"
	"testing"
)

func TestKindForPath(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"resume.pdf", KindPDF},
		{"Resume.PDF", KindPDF},
		{"resume.docx", KindDOCX},
		{"Resume.DOCX", KindDOCX},
		{"resume.txt", KindTXT},
		{"dir/with.dots/resume.txt", KindTXT},
	}

	for _, tc := range cases {
		got, err := KindForPath(tc.path)
		if err != nil {
			t.Fatalf("KindForPath(%q): %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("KindForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestKindForPathUnsupported(t *testing.T) {
	// Legacy .doc is OLE-based and unreadable by the docx extractor, so it is
	// rejected up front rather than failing during extraction.
	for _, path := range []string{"resume.odt", "resume.doc", "resume", "archive.zip"} {
		_, err := KindForPath(path)
		if !errors.Is(err, ErrUnsupportedKind) {
			t.Fatalf("KindForPath(%q): expected ErrUnsupportedKind, got %v", path, err)
		}
	}
}

func TestExtractPlainText(t *testing.T) {
	text, err := New().Extract([]byte("hello resume"), KindTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hello resume" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractUnknownKind(t *testing.T) {
	_, err := New().Extract([]byte("data"), Kind("rtf"))

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind wrapped, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := New().Extract([]byte("not a pdf at all"), KindPDF)

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Kind != KindPDF {
		t.Fatalf("unexpected kind: %q", extractionErr.Kind)
	}
}

func TestDocxRunsToText(t *testing.T) {
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
		<w:body>
			<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
			<w:p><w:r><w:t>Senior </w:t></w:r><w:r><w:t>Engineer</w:t></w:r></w:p>
			<w:p/>
		</w:body>
	</w:document>`

	text, err := docxRunsToText(body)
	if err != nil {
		t.Fatalf("docxRunsToText: %v", err)
	}

	want := "Jane Doe\nSenior Engineer\n\n"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
}

func TestDocxRunsToTextIgnoresNonRunText(t *testing.T) {
	body := `<w:p xmlns:w="x"><w:pPr>style noise</w:pPr><w:r><w:t>kept</w:t></w:r></w:p>`

	text, err := docxRunsToText(body)
	if err != nil {
		t.Fatalf("docxRunsToText: %v", err)
	}
	if text != "kept\n" {
		t.Fatalf("text = %q, want %q", text, "kept\n")
	}
}

func TestDocxRunsToTextBadXML(t *testing.T) {
	if _, err := docxRunsToText("<w:p><w:t>unclosed"); err == nil {
		t.Fatal("expected an error for malformed XML")
	}
}
