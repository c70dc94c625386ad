package wordpress

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/bilgisen/wpsync/internal/models"
)

// PostPayload is the body sent on create and update.
type PostPayload struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
	Status  string `json:"status" validate:"required,oneof=publish draft"`
}

// NewPayload builds a payload from local values. The status always goes
// through MapStatus.
func NewPayload(title, content, excerpt string, status models.PublishStatus) PostPayload {
	return PostPayload{
		Title:   strings.TrimSpace(title),
		Content: content,
		Excerpt: excerpt,
		Status:  MapStatus(status),
	}
}

// NewsPayload maps a news item to a post. The detailed content is preferred
// over the short description for the post body.
func NewsPayload(n *models.NewsItem) PostPayload {
	content := n.DetailContent
	if strings.TrimSpace(content) == "" {
		content = n.Description
	}
	return NewPayload(n.Title, content, n.Description, n.Status)
}

// EventPayload maps an event to a post, embedding the schedule in the body.
func EventPayload(e *models.EventItem) PostPayload {
	var b strings.Builder
	if e.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(e.Description))
	}
	if e.Date != "" || e.Time != "" {
		fmt.Fprintf(&b, "<p><strong>Thời gian:</strong> %s</p>\n",
			html.EscapeString(strings.TrimSpace(e.Date+" "+e.Time)))
	}
	if e.Location != "" {
		fmt.Fprintf(&b, "<p><strong>Địa điểm:</strong> %s</p>\n", html.EscapeString(e.Location))
	}
	if e.Participants != "" {
		fmt.Fprintf(&b, "<p><strong>Thành phần:</strong> %s</p>\n", html.EscapeString(e.Participants))
	}
	return NewPayload(e.Title, b.String(), e.Description, e.PublicationStatus())
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// PlainText strips tags from rendered HTML, unescapes entities and
// normalizes whitespace.
func PlainText(rendered string) string {
	cleaned := htmlTag.ReplaceAllString(rendered, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// NewsFromPost builds a local news item from a remote post. The local id is
// left for the collection to assign.
func NewsFromPost(p models.Post) models.NewsItem {
	id := p.ID
	item := models.NewsItem{WPID: &id}
	ApplyPostToNews(p, &item)
	return item
}

// ApplyPostToNews overwrites the fields WordPress owns on a news item.
func ApplyPostToNews(p models.Post, n *models.NewsItem) {
	n.Title = PlainText(p.Title.Rendered)
	n.Description = PlainText(p.Excerpt.Rendered)
	n.DetailContent = p.Content.Rendered
	n.Status = ParseRemoteStatus(p.Status)
	if len(p.Date) >= 10 {
		n.Date = p.Date[:10]
	}
}

// ApplyPostToEvent overwrites the fields WordPress owns on an event.
func ApplyPostToEvent(p models.Post, e *models.EventItem) {
	e.Title = PlainText(p.Title.Rendered)
	e.Description = PlainText(p.Excerpt.Rendered)
}
