package models

// FileRecord is a single entry parsed from a Webshare search response.
// Identity is Ident; the same file can show up in several query batches
// with varying field presence, in which case the last-seen instance wins.
type FileRecord struct {
	Ident        string `json:"ident"`
	Name         string `json:"name"`
	Size         int64  `json:"size,omitempty"` // bytes, 0 when the response omitted it
	IsSeries     bool   `json:"isSeries"`
	Quality      string `json:"quality,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Stream is the final output unit of a resolution request: a candidate whose
// link resolution succeeded.
type Stream struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Size  int64  `json:"size,omitempty"`
}
