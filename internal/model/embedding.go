package model

// Chunk pairs a slice of document text with its embedding.
type Chunk struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Match is a row returned by the similarity search.
type Match struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// EmbeddingCache is a cached vector keyed by model, task type and text hash.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
