package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
)

// Format is one of the closed set of document formats the loader understands.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatCSV      Format = "csv"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatDOCX     Format = "docx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError wraps a failure to read text out of a supported document.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("error processing document: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type extractFunc func(data []byte) (string, error)

var extractors = map[Format]extractFunc{
	FormatPDF:      parsePDF,
	FormatCSV:      parseCSV,
	FormatText:     parseText,
	FormatMarkdown: parseText,
	FormatDOCX:     parseDOCX,
}

// SupportedExtensions lists the accepted extensions in display order.
func SupportedExtensions() []string {
	return []string{".pdf", ".csv", ".txt", ".md", ".docx"}
}

// DetectFormat maps a file name to its format by extension.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format := Format(strings.TrimPrefix(ext, "."))
	if _, ok := extractors[format]; !ok || ext == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// Load extracts the text of an uploaded document. Unsupported extensions wrap
// ErrUnsupportedFormat; decoder failures, including panics raised by the
// third-party readers, come back as *ExtractionError.
func Load(name string, data []byte) (text string, err error) {
	format, err := DetectFormat(name)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("file", name).Interface("panic", r).Msg("Recovered from extractor panic")
			text, err = "", &ExtractionError{Format: format, Err: fmt.Errorf("%v", r)}
		}
	}()

	text, err = extractors[format](data)
	if err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}

	log.Debug().Str("file", name).Str("format", string(format)).Int("chars", utf8.RuneCountInString(text)).Msg("Extracted document text")
	return text, nil
}

func LoadFile(filePath string) (string, error) {
	if _, err := DetectFormat(filePath); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filePath, err)
	}
	return Load(filepath.Base(filePath), data)
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

// parseCSV reads the table with its header row and writes it back out, which
// normalises quoting and line endings.
func parseCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.New("no columns to parse from file")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parseText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid UTF-8")
	}
	return string(data), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return extractParagraphs(r.Editable().GetContent())
}

// extractParagraphs walks WordprocessingML and returns the text of each <w:p>
// on its own line.
func extractParagraphs(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
