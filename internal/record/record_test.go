package record_test

import (
	"encoding/json"
	"testing"

	"github.com/rohmanhakim/page-crawler/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNGrams(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		n      int
		want   []string
	}{
		{name: "bigrams of three", tokens: []string{"a", "b", "c"}, n: 2, want: []string{"a b", "b c"}},
		{name: "trigrams of three", tokens: []string{"a", "b", "c"}, n: 3, want: []string{"a b c"}},
		{name: "bigrams of one", tokens: []string{"a"}, n: 2, want: []string{}},
		{name: "trigrams of one", tokens: []string{"a"}, n: 3, want: []string{}},
		{name: "empty input", tokens: nil, n: 2, want: []string{}},
		{name: "unigrams", tokens: []string{"a", "b"}, n: 1, want: []string{"a", "b"}},
		{name: "zero window", tokens: []string{"a", "b"}, n: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, record.NGrams(tt.tokens, tt.n))
		})
	}
}

func TestNew_DerivesNGrams(t *testing.T) {
	r := record.New("https://es.wikipedia.org/wiki/A", "A", []string{"a", "b", "c"}, 1.5, []string{"https://es.wikipedia.org/wiki/B"})

	assert.Equal(t, []string{"a b", "b c"}, r.Bigrams())
	assert.Equal(t, []string{"a b c"}, r.Trigrams())
	assert.Equal(t, 1.5, r.EditsPerDay())
}

func TestNew_IsImmutable(t *testing.T) {
	tokens := []string{"a", "b"}
	links := []string{"x"}
	r := record.New("id", "t", tokens, 0, links)

	tokens[0] = "mutated"
	links[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, r.Tokens())
	assert.Equal(t, []string{"x"}, r.Links())

	got := r.Tokens()
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, r.Tokens())
}

func TestMarshalJSON_FieldNames(t *testing.T) {
	r := record.New("https://es.wikipedia.org/wiki/A", "Título", []string{"a"}, 0, nil)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	for _, key := range []string{"url", "title", "word_list", "bigrams", "trigrams", "edits_per_day", "links"} {
		assert.Contains(t, generic, key)
	}
	assert.Equal(t, []any{}, generic["bigrams"])
	assert.Equal(t, []any{}, generic["links"])
	assert.Equal(t, "Título", generic["title"])
}

func TestUnmarshalJSON(t *testing.T) {
	in := `{"url":"https://x/a","title":"A","word_list":["a","b"],"bigrams":["a b"],"trigrams":[],"edits_per_day":2,"links":["https://x/b"]}`

	var r record.PageRecord
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	assert.Equal(t, "https://x/a", r.Identifier())
	assert.Equal(t, []string{"a b"}, r.Bigrams())
	assert.Equal(t, 2.0, r.EditsPerDay())
	assert.Equal(t, []string{"https://x/b"}, r.Links())
}
