package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles Office Open XML word documents.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text from the main document part, one
// paragraph per line, including paragraphs nested in tables. Title and
// author come from the core properties part when present.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	content, err := bodyText(archive)
	if err != nil {
		return nil, err
	}
	title, author := coreProperties(archive)

	doc := raw.NewDocument("docx")
	doc.Title = title
	doc.Content = content
	if author != "" {
		doc.Metadata[domain.MetaAuthor] = author
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

// bodyText returns "" for an archive without a document part.
func bodyText(archive *zip.Reader) (string, error) {
	f, err := archive.Open(documentPart)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, documentPart, err)
	}
	defer f.Close()

	text, err := paragraphs(f)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, documentPart, err)
	}
	return text, nil
}

// paragraphs walks WordprocessingML and writes the text of every <w:t>.
// <w:tab/> becomes a tab, <w:br/> and <w:cr/> a newline, and each closing
// </w:p> ends a line.
func paragraphs(r io.Reader) (string, error) {
	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
		lines  int
	)
	flush := func() {
		if lines > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line.String())
		line.Reset()
		lines++
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
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
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		flush()
	}
	return strings.TrimSpace(out.String()), nil
}

type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

// coreProperties reports empty strings when the part is missing or
// malformed; a document without properties is still readable.
func coreProperties(archive *zip.Reader) (title, author string) {
	f, err := archive.Open(corePart)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	var core coreXML
	if err := xml.NewDecoder(f).Decode(&core); err != nil {
		return "", ""
	}
	return strings.TrimSpace(core.Title), strings.TrimSpace(core.Creator)
}
