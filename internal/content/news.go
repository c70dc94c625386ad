package content

import (
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
)

// News is the local news collection. Unmatched remote posts are imported as
// new news items.
type News struct {
	*Collection[models.NewsItem, *models.NewsItem]
}

// NewNews creates the news collection. Call Load before use.
func NewNews(deps Deps, seed []models.NewsItem) *News {
	return &News{newCollection[models.NewsItem, *models.NewsItem](deps, kind[models.NewsItem]{
		name:      "news",
		key:       storage.KeyNews,
		switches:  func(s *settings.Settings) *settings.EntitySync { return &s.News },
		payload:   wordpress.NewsPayload,
		applyPost: wordpress.ApplyPostToNews,
		fromPost:  wordpress.NewsFromPost,
	}, seed)}
}

// TotalViews sums the views of all news items.
func (n *News) TotalViews() int {
	total := 0
	for _, item := range n.List() {
		total += item.Views
	}
	return total
}
