package extractor

// ExtractionResult holds what the crawler keeps from one document.
// Links are normalized identifiers in first-seen order, without duplicates.
// DroppedLinks counts candidate links that could not be normalized.
type ExtractionResult struct {
	Title        string
	Tokens       []string
	Links        []string
	DroppedLinks int
}

// Options controls title fallback, tokenization and link filtering.
type Options struct {
	DefaultTitle          string
	Stopwords             StopwordSet
	LinkPathPrefix        string
	ExcludeLinkSubstrings []string
	SameHostOnly          bool
}

type StopwordSet string

const (
	StopwordsSpanish StopwordSet = "spanish"
	StopwordsEnglish StopwordSet = "english"
	StopwordsNone    StopwordSet = "none"
)
