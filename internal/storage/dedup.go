package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
	"github.com/rohmanhakim/page-crawler/pkg/urlutil"
)

// maxLineBytes bounds a single record line read by Dedup.
const maxLineBytes = 64 << 20

// Dedup copies a record stream from in to out keeping only the first
// record per normalized url. Blank lines are ignored; lines that are not
// JSON objects with a usable url are counted as malformed and skipped.
// Kept lines are copied byte for byte.
func Dedup(in io.Reader, out io.Writer) (DedupStats, error) {
	var stats DedupStats
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	w := bufio.NewWriter(out)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Processed++

		var probe struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(line, &probe); err != nil || probe.URL == "" {
			stats.Malformed++
			continue
		}
		id, err := urlutil.Normalize(probe.URL)
		if err != nil {
			stats.Malformed++
			continue
		}
		if _, dup := seen[id]; dup {
			stats.Duplicates++
			continue
		}
		seen[id] = struct{}{}

		if _, err := w.Write(line); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
		stats.Written++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read records: %w", err)
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flush records: %w", err)
	}
	return stats, nil
}

// DedupFile runs Dedup from inPath into outPath. outPath is written
// atomically and must differ from inPath.
func DedupFile(inPath string, outPath string) (DedupStats, error) {
	if inPath == outPath {
		return DedupStats{}, fmt.Errorf("input and output must differ: %s", inPath)
	}
	in, err := os.Open(inPath)
	if err != nil {
		return DedupStats{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var buf bytes.Buffer
	stats, err := Dedup(in, &buf)
	if err != nil {
		return stats, err
	}
	if ferr := fileutil.EnsureParentDir(outPath); ferr != nil {
		return stats, ferr
	}
	if ferr := fileutil.WriteFileAtomic(outPath, buf.Bytes(), 0o644); ferr != nil {
		return stats, ferr
	}
	return stats, nil
}
