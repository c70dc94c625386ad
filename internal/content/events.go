package content

import (
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
)

// Events is the local event collection. Remote posts only refresh events
// that are already linked; nothing is imported as an event.
type Events struct {
	*Collection[models.EventItem, *models.EventItem]
}

// NewEvents creates the event collection. Call Load before use.
func NewEvents(deps Deps, seed []models.EventItem) *Events {
	return &Events{newCollection[models.EventItem, *models.EventItem](deps, kind[models.EventItem]{
		name:      "events",
		key:       storage.KeyEvents,
		switches:  func(s *settings.Settings) *settings.EntitySync { return &s.Events },
		payload:   wordpress.EventPayload,
		applyPost: wordpress.ApplyPostToEvent,
	}, seed)}
}

// TotalViews sums the views of all events.
func (e *Events) TotalViews() int {
	total := 0
	for _, item := range e.List() {
		total += item.Views
	}
	return total
}

// TotalRegistrations sums the registrations of all events.
func (e *Events) TotalRegistrations() int {
	total := 0
	for _, item := range e.List() {
		total += item.Registrations
	}
	return total
}
