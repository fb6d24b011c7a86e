package domain

import "fmt"

// DetailLevel controls how long a generated summary is.
type DetailLevel string

// Summary detail levels.
const (
	DetailBrief    DetailLevel = "brief"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

// SummaryInputLimit is the number of characters of document text sent to
// the generation provider.
const SummaryInputLimit = 8000

// ParseDetailLevel validates s. Empty means DetailBrief.
func ParseDetailLevel(s string) (DetailLevel, error) {
	if s == "" {
		return DetailBrief, nil
	}
	l := DetailLevel(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: detail_level must be brief, standard or detailed, got %q", ErrInvalidInput, s)
	}
	return l, nil
}

// IsValid returns true if the level is recognised.
func (l DetailLevel) IsValid() bool {
	switch l {
	case DetailBrief, DetailStandard, DetailDetailed:
		return true
	default:
		return false
	}
}

// MaxTokens is the generation budget for the level.
func (l DetailLevel) MaxTokens() int {
	switch l {
	case DetailStandard:
		return 300
	case DetailDetailed:
		return 600
	default:
		return 100
	}
}

// FallbackSentences is how many leading sentences the extractive summary keeps.
func (l DetailLevel) FallbackSentences() int {
	switch l {
	case DetailStandard:
		return 5
	case DetailDetailed:
		return 10
	default:
		return 2
	}
}

// String returns the string representation.
func (l DetailLevel) String() string {
	return string(l)
}

// SummaryMethod records how a summary was produced.
type SummaryMethod string

// Summary methods.
const (
	SummaryGenerated  SummaryMethod = "generated"
	SummaryExtractive SummaryMethod = "extractive"
)

// Summary is the result of summarising a document.
type Summary struct {
	DocumentID      string
	Text            string
	Level           DetailLevel
	Method          SummaryMethod
	SourceWordCount int
	FileType        string
}

// Extraction is the result of extract_text.
type Extraction struct {
	DocumentID string
	Text       string
	WordCount  int
	Pages      int
	FileType   string
}

// FileMetadata is the result of get_metadata.
type FileMetadata struct {
	DocumentID    string
	Title         string
	Author        string
	Pages         int
	WordCount     int
	FileType      string
	FileSizeBytes int64
	FilePath      string
}
