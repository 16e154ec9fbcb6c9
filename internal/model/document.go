package model

// DocumentRow is one stored chunk of an ingested document.
type DocumentRow struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Ctime     int64     `json:"ctime"`
}
