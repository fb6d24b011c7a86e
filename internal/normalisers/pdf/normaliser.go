package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound is returned by CheckAvailable when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// maxTitleLength bounds a first-line title; longer lines are body text.
const maxTitleLength = 200

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents. It shells out to poppler's pdftotext
// when available and falls back to a pure Go reader otherwise.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF normaliser that runs the system pdftotext.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{
		runner:   runner,
		lookPath: exec.LookPath,
	}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `PDF extraction is more accurate with pdftotext (poppler).
  macOS:  brew install poppler
  Debian: apt install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts text page by page. Page starts are recorded in
// PageOffsets and the page count in metadata.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var (
		pages []string
		err   error
	)
	if _, lookErr := n.lookPath(toolName); lookErr == nil {
		pages, err = n.runTool(ctx, raw.Content)
	} else {
		pages, err = readPages(raw.Content)
	}
	if err != nil {
		return nil, err
	}

	content, offsets := joinPages(pages)

	doc := raw.NewDocument("pdf")
	doc.Title = extractTitle(content, raw.URI)
	doc.Content = content
	doc.PageOffsets = offsets
	doc.Metadata[domain.MetaPages] = len(pages)

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// runTool writes the PDF to a temp file and runs pdftotext over it.
// pdftotext separates pages with a form feed.
func (n *Normaliser) runTool(ctx context.Context, content []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "docmind-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	pages := strings.Split(string(out), "\f")
	// Trailing form feed after the last page.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}

// readPages extracts plain text with the built-in reader.
func readPages(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// joinPages concatenates pages with a newline and returns the rune offset
// at which each page starts.
func joinPages(pages []string) (string, []int) {
	if len(pages) == 0 {
		return "", nil
	}

	var b strings.Builder
	offsets := make([]int, 0, len(pages))
	pos := 0
	for i, page := range pages {
		page = strings.ReplaceAll(page, "\r\n", "\n")
		if i > 0 {
			b.WriteByte('\n')
			pos++
		}
		offsets = append(offsets, pos)
		b.WriteString(page)
		pos += utf8.RuneCountInString(page)
	}
	return b.String(), offsets
}

// extractTitle returns the first short non-empty line, falling back to the
// file name with separators turned into spaces.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Trim(line, "\x00") == "" {
			continue
		}
		if len(line) < maxTitleLength {
			return line
		}
	}

	base := filepath.Base(uri)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(stem)
}
