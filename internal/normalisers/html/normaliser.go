package html

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML document to readable text, one block element
// per line. The <title> element becomes the title and a
// <meta name="author"> tag the author.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page := parse(raw.Content)

	doc := raw.NewDocument("html")
	doc.Title = page.title
	doc.Content = page.text
	if page.author != "" {
		doc.Metadata[domain.MetaAuthor] = page.author
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// Elements whose text is never content.
var hidden = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

// Elements that start and end a line.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Table: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Nav: true,
	atom.Main: true, atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true,
	atom.Dd: true, atom.Figure: true, atom.Figcaption: true, atom.Br: true, atom.Hr: true,
}

type page struct {
	text   string
	title  string
	author string
}

func parse(src []byte) page {
	var (
		p       page
		body    strings.Builder
		title   strings.Builder
		inTitle bool
		hiding  int
	)

	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.TextToken:
			switch {
			case inTitle:
				title.Write(z.Text())
			case hiding == 0:
				body.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case tag == atom.Title:
				inTitle = tt == html.StartTagToken
			case tag == atom.Meta:
				if hasAttr && p.author == "" {
					p.author = metaAuthor(z)
				}
			case tag == atom.Body:
				// A missing </head> must not hide the whole page.
				hiding = 0
			case hidden[tag]:
				if tt == html.StartTagToken {
					hiding++
				}
			case blocks[tag]:
				body.WriteByte('\n')
			case tag == atom.Td || tag == atom.Th:
				body.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			switch {
			case tag == atom.Title:
				inTitle = false
			case hidden[tag]:
				if hiding > 0 {
					hiding--
				}
			case blocks[tag]:
				body.WriteByte('\n')
			}
		}
	}

	p.text = tidyLines(body.String())
	p.title = strings.Join(strings.Fields(title.String()), " ")
	return p
}

func metaAuthor(z *html.Tokenizer) string {
	var name, content string
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "name":
			name = strings.ToLower(string(val))
		case "content":
			content = string(val)
		}
		if !more {
			break
		}
	}
	if name != "author" {
		return ""
	}
	return strings.TrimSpace(content)
}

// tidyLines collapses whitespace inside each line and drops blank lines.
func tidyLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}

// stripHTML returns only the readable text of an HTML fragment.
func stripHTML(content string) string {
	return parse([]byte(content)).text
}
