package storage

// Meta describes the paged collection as reported by the page-1 response.
type Meta struct {
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
	PageSize   int `json:"page_size"`
}

type Item struct {
	ID           string `json:"id"`
	Headline     string `json:"headline"`
	TrailText    string `json:"trail_text"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Pages is cached pages concatenated in ascending page order.
type Pages struct {
	Items []Item
	// Last is the highest page number that was read.
	Last int
}
