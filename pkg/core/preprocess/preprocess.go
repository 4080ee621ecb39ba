// Package preprocess turns a raw StatementDocument into bounded, ordered
// text segments ready for the inference backend. Prepare is a pure
// transformation: same document and options in, same segments out.
package preprocess

import (
	"strings"

	"jse_extractor/pkg/models"
)

// DefaultMaxSegmentChars keeps one segment comfortably inside the backend's
// context window alongside the prompt scaffolding.
const DefaultMaxSegmentChars = 24000

// Options tune Prepare.
type Options struct {
	// MaxSegmentChars bounds each segment; 0 means DefaultMaxSegmentChars.
	MaxSegmentChars int
	// DetectLanguage runs lingua over the extracted text when the document
	// does not already declare a language. Off by default: the detector is
	// expensive to build and callers that know their corpus skip it.
	DetectLanguage bool
}

// Prepare converts a statement document into model-ready input. Unsupported
// or empty documents fail with UnsupportedFormat; nothing is retried.
func Prepare(doc models.StatementDocument, opts Options) (models.PreparedInput, error) {
	if len(doc.Content) == 0 {
		return models.PreparedInput{}, models.Errorf(models.ErrUnsupportedFormat, "preprocess", "document %s is empty", doc.SourceRef)
	}

	format := doc.Format
	if format == "" || format == models.FormatUnknown {
		format = SniffFormat(doc.Content, doc.SourceRef)
	}

	var text string
	var err error
	switch format {
	case models.FormatCSV, models.FormatText:
		text = normalizeText(string(doc.Content))
	case models.FormatHTML:
		text, err = htmlToText(doc.Content)
	case models.FormatMarkdown:
		text, err = markdownToText(doc.Content)
	default:
		return models.PreparedInput{}, models.Errorf(models.ErrUnsupportedFormat, "preprocess", "document %s has unsupported format %q", doc.SourceRef, format)
	}
	if err != nil {
		return models.PreparedInput{}, models.NewError(models.ErrUnsupportedFormat, "preprocess", err)
	}
	if strings.TrimSpace(text) == "" {
		return models.PreparedInput{}, models.Errorf(models.ErrUnsupportedFormat, "preprocess", "document %s has no extractable text", doc.SourceRef)
	}

	lang := doc.Language
	if lang == "" && opts.DetectLanguage {
		lang = detectLanguage(text)
	}

	maxChars := opts.MaxSegmentChars
	if maxChars <= 0 {
		maxChars = DefaultMaxSegmentChars
	}

	return models.PreparedInput{
		Segments: segment(text, maxChars),
		Format:   format,
		Language: lang,
	}, nil
}

// SniffFormat guesses the document format from its extension and content.
func SniffFormat(content []byte, sourceRef string) models.DocumentFormat {
	ref := strings.ToLower(sourceRef)
	switch {
	case strings.HasSuffix(ref, ".csv"):
		return models.FormatCSV
	case strings.HasSuffix(ref, ".html"), strings.HasSuffix(ref, ".htm"):
		return models.FormatHTML
	case strings.HasSuffix(ref, ".md"), strings.HasSuffix(ref, ".markdown"):
		return models.FormatMarkdown
	case strings.HasSuffix(ref, ".txt"):
		return models.FormatText
	}

	head := strings.ToLower(string(content[:min(len(content), 512)]))
	head = strings.TrimSpace(head)
	switch {
	case strings.HasPrefix(head, "<!doctype html"), strings.HasPrefix(head, "<html"), strings.Contains(head, "<table"):
		return models.FormatHTML
	case strings.HasPrefix(head, "# "), strings.Contains(head, "\n| "):
		return models.FormatMarkdown
	case strings.Contains(head, ","):
		return models.FormatCSV
	}
	return models.FormatText
}

// segment splits text into ordered chunks of at most maxChars, breaking only
// at line boundaries so a table row never straddles two segments. A single
// oversized line becomes its own segment rather than being truncated.
func segment(text string, maxChars int) []models.Segment {
	lines := strings.Split(text, "\n")
	var segs []models.Segment
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		segs = append(segs, models.Segment{Index: len(segs), Text: b.String()})
		b.Reset()
	}
	for _, line := range lines {
		if b.Len() > 0 && b.Len()+len(line)+1 > maxChars {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	flush()
	return segs
}

func normalizeText(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimRight(s, "\n")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
