package preprocess

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pemistahl/lingua-go"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// htmlToText strips markup and returns the visible text of an HTML filing.
// Script and style bodies are dropped; block elements become line breaks so
// tables keep one row per line.
func htmlToText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("p, div, tr, li, h1, h2, h3, h4, h5, h6, caption").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Filter("p, div, tr, li").Length() > 0 {
			return
		}
		line := collapseSpace(s.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	})
	if b.Len() == 0 {
		// Flat documents without block structure still carry text.
		b.WriteString(collapseSpace(doc.Text()))
	}
	return normalizeText(b.String()), nil
}

// markdownToText walks the goldmark AST and keeps the raw text of every
// leaf node, one block per line. Formatting markers and link targets are
// discarded.
func markdownToText(content []byte) (string, error) {
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(content))

	var b strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(content))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(content))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}
	return normalizeText(b.String()), nil
}

var (
	linguaOnce     sync.Once
	linguaDetector lingua.LanguageDetector
)

// detectLanguage returns the lowercase ISO 639-1 code of the dominant
// language, or "" when detection is inconclusive. The detector covers the
// languages JSE filings actually appear in.
func detectLanguage(text string) string {
	linguaOnce.Do(func() {
		linguaDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.French, lingua.Spanish, lingua.Portuguese).
			Build()
	})
	sample := text
	if len(sample) > 4000 {
		sample = sample[:4000]
	}
	lang, ok := linguaDetector.DetectLanguageOf(sample)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
