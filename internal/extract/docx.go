package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// docxText returns the body paragraphs of a Word document, one per line.
func docxText(_ context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", appErr.ErrUnsupportedContent, err)
	}
	defer doc.Close()
	return parseDocumentXML(doc.Editable().GetContent())
}

func parseDocumentXML(content string) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return "", fmt.Errorf("%w: docx body: %w", appErr.ErrUnsupportedContent, err)
	}
	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				sb.WriteString(t.Content)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"), nil
}
