package content

import (
	"context"
	"errors"

	"github.com/bilgisen/wpsync/internal/models"
)

// Distributed is the outcome of Distribute per collection.
type Distributed struct {
	News   ApplyResult `json:"news"`
	Events ApplyResult `json:"events"`
}

// Imported is the number of new local items.
func (d Distributed) Imported() int { return d.News.Imported + d.Events.Imported }

// Updated is the number of local items overwritten by their remote post.
func (d Distributed) Updated() int { return d.News.Updated + d.Events.Updated }

// Distribute hands pulled posts to their owners. Posts linked to an event
// update that event. Everything else goes to the news collection, which
// imports posts it does not know yet. events may be nil.
func Distribute(ctx context.Context, news *News, events *Events, posts []models.Post) (Distributed, error) {
	var res Distributed
	if len(posts) == 0 {
		return res, nil
	}

	newsPosts := posts
	var eventErr error
	if events != nil {
		claimed := events.RemoteIDs()
		var eventPosts []models.Post
		newsPosts = make([]models.Post, 0, len(posts))
		for _, p := range posts {
			if claimed[p.ID] {
				eventPosts = append(eventPosts, p)
			} else {
				newsPosts = append(newsPosts, p)
			}
		}
		res.Events, eventErr = events.ApplyRemote(ctx, eventPosts)
	}

	var newsErr error
	res.News, newsErr = news.ApplyRemote(ctx, newsPosts)
	return res, errors.Join(eventErr, newsErr)
}
