package types

// ScoreRecord holds the SSIM score of one candidate against the reference
type ScoreRecord struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// HashRecord holds the indexed metadata and hashes of an image
type HashRecord struct {
	ID             int64  `json:"id"`
	MBID           string `json:"mbid,omitempty"`
	FileName       string `json:"file_name"`
	Folder         string `json:"folder"`
	Format         string `json:"format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	MIMEType       string `json:"mime_type"`
	Size           int64  `json:"size"`
	ModifiedAt     string `json:"modified_at"`
	IndexedAt      string `json:"indexed_at"`
	PerceptualHash string `json:"phash"`
	DifferenceHash string `json:"dhash"`
}

// HashMatch holds the hash distances of an indexed image to a query
type HashMatch struct {
	MBID          string
	FileName      string
	Folder        string
	PHashDistance int
	DHashDistance int
}
