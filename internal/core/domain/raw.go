package domain

// RawDocument represents the bytes of a file before normalisation.
type RawDocument struct {
	// URI is the original location (file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains reader-supplied key-value pairs such as file size.
	Metadata map[string]any
}

// MetaFormat names the normaliser family that produced a document.
const MetaFormat = "format"

// NewDocument starts the document a normaliser fills in: the URI is set,
// reader metadata is copied and the MIME type recorded. An empty format is
// left out of the metadata.
func (r *RawDocument) NewDocument(format string) Document {
	meta := make(map[string]any, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[MetaMIMEType] = r.MIMEType
	if format != "" {
		meta[MetaFormat] = format
	}
	return Document{URI: r.URI, Metadata: meta}
}
