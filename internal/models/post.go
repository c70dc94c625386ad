package models

import "time"

// Rendered is the WordPress wrapper around rendered HTML fields.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Post is a WordPress post as returned by /wp/v2/posts.
type Post struct {
	ID         int      `json:"id"`
	Title      Rendered `json:"title"`
	Content    Rendered `json:"content"`
	Excerpt    Rendered `json:"excerpt"`
	Status     string   `json:"status"`
	Date       string   `json:"date"`
	Modified   string   `json:"modified"`
	Link       string   `json:"link"`
	Categories []int    `json:"categories,omitempty"`
	Tags       []int    `json:"tags,omitempty"`
}

// ModifiedTime parses the modified timestamp. WordPress sends it without a zone.
func (p Post) ModifiedTime() (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05", p.Modified)
}

// Term is a WordPress category or tag.
type Term struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}
