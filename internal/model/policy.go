package model

// PolicyChunk is one embedded passage of a policy document.
type PolicyChunk struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type ScoredChunk struct {
	Chunk PolicyChunk `json:"chunk"`
	Score float32     `json:"score"`
}

// RetrievedContext is ordered by descending score.
type RetrievedContext struct {
	Query string        `json:"query"`
	Items []ScoredChunk `json:"items"`
}

func (c *RetrievedContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *RetrievedContext) Categories() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, 0, len(c.Items))
	seen := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.Chunk.Category]; ok {
			continue
		}
		seen[item.Chunk.Category] = struct{}{}
		out = append(out, item.Chunk.Category)
	}
	return out
}

type PolicyHit struct {
	ChunkID  string  `json:"chunk_id"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Score    float32 `json:"score"`
}

// IndexHit is one search result before the chunk metadata is joined.
type IndexHit struct {
	ChunkID  string  `json:"chunk_id"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}
