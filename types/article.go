package types

// Article is a submitted piece of writing under originality review.
// The body text lives in the metadata store; attachment bytes live in
// blob storage and are fetched on demand.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Attachment describes one file submitted alongside an article.
// Bytes are never held here; StoragePath locates them in blob storage.
type Attachment struct {
	ID          string `json:"id"`
	ArticleID   string `json:"article_id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	StoragePath string `json:"storage_path"`
}

// Document is the pipeline-internal unit of comparison: the normalized
// text of one attachment, one scraped web page, or the article body
// itself. Documents live only for the duration of a single run.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Text     string `json:"text"`
}
