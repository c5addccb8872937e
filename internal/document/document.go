package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/nguyenthenguyen/docx"
)

// Kind is the declared format of an uploaded document.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindTXT  Kind = "txt"
)

// ErrUnsupportedKind is returned when a file extension maps to no known kind.
var ErrUnsupportedKind = errors.New("unsupported document kind")

// KindForPath derives the document kind from the file extension.
func KindForPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF, nil
	// Legacy .doc is an OLE binary, not a zip archive, and the docx reader
	// cannot open it, so it is not advertised as supported.
	case ".docx":
		return KindDOCX, nil
	case ".txt":
		return KindTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, filepath.Ext(path))
	}
}

// ExtractionError reports a document that could not be converted to text.
// Such a document is unprocessable, not zero-scoring: callers skip it.
type ExtractionError struct {
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s document: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Source converts raw document bytes into plain UTF-8 text.
type Source interface {
	Extract(data []byte, kind Kind) (string, error)
}

// New returns the default Source: go-fitz for PDF, run extraction for DOCX,
// passthrough for plain text.
func New() Source {
	return &source{}
}

type source struct{}

func (s *source) Extract(data []byte, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDF(data)
	case KindDOCX:
		return extractDOCX(data)
	case KindTXT:
		return string(data), nil
	default:
		return "", &ExtractionError{Kind: kind, Err: ErrUnsupportedKind}
	}
}

func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", &ExtractionError{Kind: KindPDF, Err: err}
	}
	defer doc.Close()

	var text strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			return "", &ExtractionError{Kind: KindPDF, Err: fmt.Errorf("page %d: %w", n+1, err)}
		}
		if page = strings.TrimSpace(page); page != "" {
			text.WriteString(page)
			text.WriteString("\n")
		}
	}

	return text.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Kind: KindDOCX, Err: err}
	}
	defer doc.Close()

	text, err := docxRunsToText(doc.Editable().GetContent())
	if err != nil {
		return "", &ExtractionError{Kind: KindDOCX, Err: err}
	}

	return text, nil
}

// docxRunsToText collects the text runs (w:t) from a document.xml body,
// emitting a newline at each paragraph boundary.
func docxRunsToText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var text strings.Builder
	inRun := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document body: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inRun = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inRun {
				text.Write(el)
			}
		}
	}

	return text.String(), nil
}
