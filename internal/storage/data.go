package storage

// AppendResult describes what one Append did to the output stream.
type AppendResult struct {
	bytes    int
	total    int64
	exceeded bool
	rejected bool
}

func NewAppendResult(bytes int, total int64, exceeded bool, rejected bool) AppendResult {
	return AppendResult{
		bytes:    bytes,
		total:    total,
		exceeded: exceeded,
		rejected: rejected,
	}
}

// Bytes written by this call, newline included.
func (a AppendResult) Bytes() int {
	return a.bytes
}

// Total bytes emitted by the sink after this call.
func (a AppendResult) Total() int64 {
	return a.total
}

// Exceeded reports whether the budget is met or exceeded after this call.
func (a AppendResult) Exceeded() bool {
	return a.exceeded
}

// Rejected reports that nothing was written because the budget had
// already been exceeded.
func (a AppendResult) Rejected() bool {
	return a.rejected
}

type DedupStats struct {
	Processed  int
	Written    int
	Duplicates int
	Malformed  int
}
