package domain

// Chunk is one indexed slice of a corpus document.
type Chunk struct {
	ID         string
	Text       string
	SourceFile string
	ChunkIndex int
}

// RetrievalMatch is a single KNN hit with its cosine similarity.
type RetrievalMatch struct {
	ID         string
	Text       string
	SourceFile string
	ChunkIndex int
	Score      float64
}

// RetrievalResult is the gated outcome of a retrieval pass.
//
// When Accepted is false, Context holds a human-readable explanation of why
// the query could not be grounded instead of reference blocks.
type RetrievalResult struct {
	Matches  []RetrievalMatch
	Context  string
	Accepted bool
	MaxScore float64
}
