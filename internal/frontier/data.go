package frontier

type Source string

const (
	SourceSeed   Source = "seed"
	SourceCrawl  Source = "crawl"
	SourceResume Source = "resume"
)

// Entry is one unit of pending work: a normalized identifier and the
// number of hops from the seed.
type Entry struct {
	ID     string
	Depth  int
	Source Source
}

func NewEntry(id string, depth int, source Source) Entry {
	return Entry{
		ID:     id,
		Depth:  depth,
		Source: source,
	}
}
