// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// DefaultRegistry wires the built-in normalisers: plain text (the text/*
// fallback), Markdown, HTML, DOCX and PDF.
package normalisers
