package engine

import (
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// DefaultChunkSize is the number of record identifiers packed into one chunk
// when neither the configuration nor the run definition overrides it.
const DefaultChunkSize = 200

// PartitionIDs splits the identifier sequence into ordered chunks of at most
// size identifiers each. Input order is preserved across chunk boundaries and
// the last chunk may be short. A size of zero or less falls back to
// DefaultChunkSize. An empty input yields no chunks.
func PartitionIDs(ids []string, size int) []model.Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([]model.Chunk, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, model.NewChunk(len(chunks), ids[start:end]))
	}
	return chunks
}
