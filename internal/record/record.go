package record

import (
	"encoding/json"
	"strings"
)

// PageRecord is the unit of output: one line of the record stream.
// It is immutable once constructed; accessors return copies.
type PageRecord struct {
	identifier   string
	title        string
	tokens       []string
	bigrams      []string
	trigrams     []string
	editsPerDay  float64
	outboundURLs []string
}

// New builds a record and derives its bigrams and trigrams from tokens.
func New(identifier string, title string, tokens []string, editsPerDay float64, links []string) PageRecord {
	tokensCopy := cloneStrings(tokens)
	return PageRecord{
		identifier:   identifier,
		title:        title,
		tokens:       tokensCopy,
		bigrams:      NGrams(tokensCopy, 2),
		trigrams:     NGrams(tokensCopy, 3),
		editsPerDay:  editsPerDay,
		outboundURLs: cloneStrings(links),
	}
}

func (r PageRecord) Identifier() string {
	return r.identifier
}

func (r PageRecord) Title() string {
	return r.title
}

func (r PageRecord) Tokens() []string {
	return cloneStrings(r.tokens)
}

func (r PageRecord) Bigrams() []string {
	return cloneStrings(r.bigrams)
}

func (r PageRecord) Trigrams() []string {
	return cloneStrings(r.trigrams)
}

func (r PageRecord) EditsPerDay() float64 {
	return r.editsPerDay
}

func (r PageRecord) Links() []string {
	return cloneStrings(r.outboundURLs)
}

// recordDTO fixes the wire format consumed by the batch pipeline.
type recordDTO struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	WordList    []string `json:"word_list"`
	Bigrams     []string `json:"bigrams"`
	Trigrams    []string `json:"trigrams"`
	EditsPerDay float64  `json:"edits_per_day"`
	Links       []string `json:"links"`
}

func (r PageRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordDTO{
		URL:         r.identifier,
		Title:       r.title,
		WordList:    nonNil(r.tokens),
		Bigrams:     nonNil(r.bigrams),
		Trigrams:    nonNil(r.trigrams),
		EditsPerDay: r.editsPerDay,
		Links:       nonNil(r.outboundURLs),
	})
}

func (r *PageRecord) UnmarshalJSON(data []byte) error {
	var dto recordDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*r = PageRecord{
		identifier:   dto.URL,
		title:        dto.Title,
		tokens:       dto.WordList,
		bigrams:      dto.Bigrams,
		trigrams:     dto.Trigrams,
		editsPerDay:  dto.EditsPerDay,
		outboundURLs: dto.Links,
	}
	return nil
}

// NGrams returns the sliding windows of size n over tokens, each joined by a
// single space. Fewer than n tokens (or n < 1) yields an empty slice.
func NGrams(tokens []string, n int) []string {
	if n < 1 || len(tokens) < n {
		return []string{}
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
