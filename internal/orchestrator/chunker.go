package orchestrator

import (
	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Split partitions set into contiguous chunks of at most size sequences.
// Chunk i covers [i*size, min((i+1)*size, N)). Members share the set's
// storage.
func Split(set *msa.SequenceSet, size int) ([]msa.Chunk, error) {
	if size < 1 {
		return nil, msa.InvalidConfig("chunker", "chunk size must be at least 1, got %d", size)
	}
	if set == nil || set.Len() == 0 {
		return nil, nil
	}

	n := set.Len()
	chunks := make([]msa.Chunk, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		chunks = append(chunks, msa.Chunk{
			Index:   len(chunks),
			Start:   start,
			Members: set.Slice(start, end),
		})
	}
	return chunks, nil
}
